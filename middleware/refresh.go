package middleware

import (
	"net/http"

	"github.com/MrEthical07/bearerAuth"
	"github.com/MrEthical07/bearerAuth/jwt"
)

// RefreshHandler rotates the token in the refresh header. On success both new tokens
// are written to their headers with 204; any failure is 401.
func RefreshHandler(engine *bearerAuth.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if engine == nil {
			unauthorized(w)
			return
		}

		token, ok := engine.TokenFromHeader(r.Header, jwt.KindRefresh)
		if !ok {
			unauthorized(w)
			return
		}

		ctx := bearerAuth.WithClientIP(r.Context(), clientIP(r))
		pair, err := engine.Refresh(ctx, token)
		if err != nil {
			unauthorized(w)
			return
		}

		engine.SetAccessHeader(w.Header(), pair.AccessToken)
		engine.SetRefreshHeader(w.Header(), pair.RefreshToken)
		w.WriteHeader(http.StatusNoContent)
	})
}
