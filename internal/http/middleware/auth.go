// Package middleware contains the Gin middleware shared by the HTTP layer.
//
// This file implements bearer-token authentication. The middleware has two
// modes selected by configuration: required, where every request must carry a
// valid token, and optional, where anonymous requests pass through untouched
// but a presented token is still validated (a bad token is never silently
// downgraded to anonymous).
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vietchat/ollama-chat-backend/internal/auth"
)

// userIDKey is the Gin context key under which the authenticated user id is
// stored for handlers and the rate limiter.
const userIDKey = "userID"

// Auth returns a middleware validating Authorization: Bearer tokens signed
// with secret. On success the token subject is stored in the Gin context.
// Missing tokens abort with 401 only when required is true; malformed or
// invalid tokens always abort with 401.
func Auth(secret string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				unauthorized(c, "missing bearer token")
				return
			}
			c.Next()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			unauthorized(c, "authorization header must use the Bearer scheme")
			return
		}

		uid, err := auth.ValidateToken(secret, strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(userIDKey, uid)
		c.Next()
	}
}

// unauthorized aborts with the standard JSON error envelope.
func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
