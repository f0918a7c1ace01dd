package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/MrEthical07/bearerAuth"
	"github.com/MrEthical07/bearerAuth/jwt"
)

// Guard authenticates the access header of each request. Requests without a valid token
// or a resolvable principal receive 401 and never reach next.
func Guard(engine *bearerAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(r, engine)
			if !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthority must run after Guard. It answers 403 when the principal lacks
// authority and 401 when no principal is attached.
func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := bearerAuth.PrincipalFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if !p.HasAuthority(authority) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, engine *bearerAuth.Engine) (context.Context, bool) {
	if engine == nil {
		return nil, false
	}

	token, ok := engine.TokenFromHeader(r.Header, jwt.KindAccess)
	if !ok {
		return nil, false
	}

	ctx := bearerAuth.WithClientIP(r.Context(), clientIP(r))
	p, err := engine.Authenticate(ctx, token)
	if err != nil {
		return nil, false
	}
	return bearerAuth.WithPrincipal(ctx, p), true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
