package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/services"
)

// RoleGuard runs the route authorization guard and then the Casbin policy
// for the selected role.
type RoleGuard struct {
	identity domain.IdentityService
	enforcer domain.CasbinEnforcer
	logger   *zap.Logger
}

// NewRoleGuard creates the guard middleware factory
func NewRoleGuard(identity domain.IdentityService, enforcer domain.CasbinEnforcer, logger *zap.Logger) *RoleGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleGuard{identity: identity, enforcer: enforcer, logger: logger}
}

var guardStatus = map[domain.GuardState]int{
	domain.GuardLoading:              http.StatusServiceUnavailable,
	domain.GuardUnauthenticated:      http.StatusUnauthorized,
	domain.GuardSuspended:            http.StatusForbidden,
	domain.GuardPendingRoleSelection: http.StatusForbidden,
	domain.GuardRoleMismatch:         http.StatusForbidden,
}

var guardCode = map[domain.GuardState]string{
	domain.GuardLoading:              "loading",
	domain.GuardUnauthenticated:      "unauthenticated",
	domain.GuardSuspended:            "account_suspended",
	domain.GuardPendingRoleSelection: "role_selection_required",
	domain.GuardRoleMismatch:         "role_mismatch",
}

// Require admits the request only when the session's selected role is one
// of roles (any role when none given) and Casbin allows it on the path.
func (g *RoleGuard) Require(roles ...domain.Role) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		ctx := c.Request.Context()
		sessionID := SessionID(c)

		decision, err := g.identity.Authorize(ctx, sessionID, roles...)
		if err != nil {
			if errors.Is(err, domain.ErrBackendUnavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "backend_unavailable"})
				return
			}
			g.logger.Error("authorization check failed", zap.String("session_id", sessionID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}

		if decision.State != domain.GuardAuthorized {
			if decision.State == domain.GuardLoading {
				c.Header("Retry-After", "1")
			}
			c.AbortWithStatusJSON(guardStatus[decision.State], gin.H{
				"error":    guardCode[decision.State],
				"state":    decision.State,
				"redirect": decision.Redirect,
			})
			return
		}

		session, err := g.identity.CurrentSession(ctx, sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired", "redirect": domain.LoginPath})
			return
		}
		selected, ok := session.SelectedRole()
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": guardCode[domain.GuardPendingRoleSelection], "redirect": domain.RoleSelectionPath})
			return
		}

		subject := services.SubjectForRole(selected.Role)
		allowed, err := g.enforcer.Enforce(subject, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			g.logger.Error("casbin enforce failed", zap.String("subject", subject), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			return
		}

		c.Set("selected_role", selected.Role)
		c.Set("selected_profile", selected)
		c.Next()
	})
}
