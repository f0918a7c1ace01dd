package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/bearerAuth"
	promexport "github.com/MrEthical07/bearerAuth/metrics/export/prometheus"
	"github.com/MrEthical07/bearerAuth/middleware"
	"github.com/MrEthical07/bearerAuth/principal"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type sessionRequest struct {
	Subject string `json:"subject" binding:"required"`
}

func newRouter(engine *bearerAuth.Engine, lookup principal.Lookup, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promexport.NewPrometheusExporter(engine).Handler()))

	auth := r.Group("/auth")
	auth.POST("/session", sessionHandler(engine, lookup))
	auth.POST("/refresh", gin.WrapH(middleware.RefreshHandler(engine)))
	auth.POST("/logout", middleware.GinGuard(engine), logoutHandler(engine))

	r.GET("/me", middleware.GinGuard(engine), func(c *gin.Context) {
		p, _ := middleware.GinPrincipal(c)
		c.JSON(http.StatusOK, gin.H{
			"subject":     p.Subject,
			"role":        p.Role,
			"authorities": p.Authorities,
			"expires_at":  p.ExpiresAt,
		})
	})

	return r
}

// sessionHandler starts a session for a known principal. Credential checks belong to the
// caller's login flow in front of this endpoint.
func sessionHandler(engine *bearerAuth.Engine, lookup principal.Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
			return
		}

		rec, err := lookup.Lookup(c.Request.Context(), req.Subject)
		if err != nil {
			if errors.Is(err, principal.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "principal lookup failed"})
			return
		}

		ctx := bearerAuth.WithClientIP(c.Request.Context(), c.ClientIP())
		pair, err := engine.StartSession(ctx, rec.Subject, rec.Role)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
			return
		}

		engine.SetAccessHeader(c.Writer.Header(), pair.AccessToken)
		engine.SetRefreshHeader(c.Writer.Header(), pair.RefreshToken)
		c.Status(http.StatusNoContent)
	}
}

func logoutHandler(engine *bearerAuth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := middleware.GinPrincipal(c)
		if err := engine.Logout(c.Request.Context(), p.Subject); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "logout failed"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		logger.Info("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
