package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// AuthMiddleware creates authentication middleware. With required unset,
// requests lacking a usable token continue unauthenticated.
func AuthMiddleware(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository, required bool) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		reject := func(msg string) {
			if !required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": domain.LoginPath})
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject("Authorization header required")
			return
		}

		// Check Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			reject("Invalid authorization header format")
			return
		}

		claims, err := tokenSvc.ValidateSessionToken(tokenParts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				reject("Token expired")
			case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenMalformed):
				reject("Invalid token")
			default:
				reject("Token validation failed")
			}
			return
		}

		// Validate session exists in Redis (critical security check)
		session, err := sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
		if err != nil || session == nil {
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, domain.ErrSessionExpired) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session lookup failed"})
				return
			}
			reject("Session invalid or expired")
			return
		}

		// Ensure session belongs to the same phone
		if session.Phone != claims.Phone {
			reject("Session phone mismatch")
			return
		}

		c.Set(ContextSessionID, claims.SessionID)
		c.Set(ContextPhone, claims.Phone)
		c.Next()
	})
}
