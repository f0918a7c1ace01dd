package middleware

import (
	"net/http"

	"github.com/MrEthical07/bearerAuth"
	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the *bearerAuth.Principal set by GinGuard.
const PrincipalKey = "bearerauth.principal"

// GinGuard is Guard for gin routers. The principal is stored both in the gin context
// under PrincipalKey and in the request context.
func GinGuard(engine *bearerAuth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := authenticate(c.Request, engine)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		p, _ := bearerAuth.PrincipalFromContext(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Set(PrincipalKey, p)
		c.Next()
	}
}

// GinPrincipal returns the principal stored by GinGuard.
func GinPrincipal(c *gin.Context) (*bearerAuth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*bearerAuth.Principal)
	return p, ok && p != nil
}
