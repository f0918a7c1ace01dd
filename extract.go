package bearerAuth

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/bearerAuth/jwt"
)

// ExtractBearer returns the token following scheme in a header value. It reports false
// when the value lacks the scheme or nothing but blanks follow it. An empty scheme means
// jwt.DefaultScheme.
func ExtractBearer(value, scheme string) (string, bool) {
	if scheme == "" {
		scheme = jwt.DefaultScheme
	}
	if !strings.HasPrefix(value, scheme) {
		return "", false
	}
	token := strings.TrimSpace(value[len(scheme):])
	if token == "" {
		return "", false
	}
	return token, true
}

// TokenFromHeader reads the header configured for kind and strips the scheme.
func (e *Engine) TokenFromHeader(h http.Header, kind jwt.Kind) (string, bool) {
	if e == nil || h == nil {
		return "", false
	}
	name := e.config.Headers.Name(kind)
	if name == "" {
		return "", false
	}
	return ExtractBearer(h.Get(name), e.config.Headers.Scheme)
}

// SetAccessHeader writes an issued access token to the access header.
func (e *Engine) SetAccessHeader(h http.Header, token string) {
	e.setHeader(h, jwt.KindAccess, token)
}

// SetRefreshHeader writes an issued refresh token to the refresh header.
func (e *Engine) SetRefreshHeader(h http.Header, token string) {
	e.setHeader(h, jwt.KindRefresh, token)
}

// HeaderName returns the header carrying tokens of kind.
func (e *Engine) HeaderName(kind jwt.Kind) string {
	if e == nil {
		return ""
	}
	return e.config.Headers.Name(kind)
}

func (e *Engine) setHeader(h http.Header, kind jwt.Kind, token string) {
	if e == nil || h == nil || token == "" {
		return
	}
	h.Set(e.config.Headers.Name(kind), token)
}
