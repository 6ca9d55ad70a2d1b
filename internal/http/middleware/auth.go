package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// Context keys set by the auth middleware
const (
	ContextSessionID = "session_id"
	ContextPhone     = "phone"
)

// AuthMW wraps the token service and session repository for middleware
type AuthMW struct {
	tokenSvc    domain.TokenService
	sessionRepo domain.SessionRepository
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository) *AuthMW {
	return &AuthMW{
		tokenSvc:    tokenSvc,
		sessionRepo: sessionRepo,
	}
}

// WithJWT rejects requests without a valid token for a live session
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.sessionRepo, true)
}

// OptionalJWT attaches the session when a valid token is present and lets
// the request through either way.
func (mw *AuthMW) OptionalJWT() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.sessionRepo, false)
}

// SessionID returns the authenticated session id, or "" if none
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
