package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quiz-battle-service/internal/auth"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// TokenVerifier resolves an access token to the identity it was issued for.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// JWTAuth authenticates requests by bearer token. Browsers cannot set headers on a
// WebSocket handshake, so a token query parameter is accepted as well.
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				jsonError(c, http.StatusUnauthorized, "Invalid authorization header format")
				c.Abort()
				return
			}
			token = parts[1]
		}
		if token == "" {
			jsonError(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			jsonError(c, http.StatusUnauthorized, "Failed to validate token")
			c.Abort()
			return
		}

		c.Set(userIDKey, identity.UserID)
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), identity))
		c.Next()
	}
}

// Recovery turns panics into a 500 and logs them.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", err)
				jsonError(c, http.StatusInternalServerError)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"user", c.GetString(userIDKey),
			"duration", time.Since(start),
		)
	}
}
