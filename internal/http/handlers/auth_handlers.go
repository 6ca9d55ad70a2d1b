package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/middleware"
)

// AuthHandlers serves the phone sign-in and session endpoints
type AuthHandlers struct {
	identity domain.IdentityService
	logger   *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(identity domain.IdentityService, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{identity: identity, logger: logger}
}

// OTPRequest represents an OTP request
type OTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// OTPVerifyRequest represents OTP verification request
type OTPVerifyRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// SelectRoleRequest represents a role selection
type SelectRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

func sessionView(s *domain.Session) gin.H {
	view := gin.H{
		"id":                s.ID,
		"phone":             s.Phone,
		"roles":             s.Roles,
		"pending_selection": s.PendingSelection(),
		"expires_at":        s.ExpiresAt,
	}
	if p, ok := s.SelectedRole(); ok {
		view["selected_role"] = p.Role
		view["selected_profile"] = p
		view["dashboard"] = domain.DashboardPath(p.Role)
	}
	return view
}

// RequestOTP issues a new OTP challenge for a phone
func (h *AuthHandlers) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issued, err := h.identity.RequestOTP(c.Request.Context(), req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"phone":               issued.Phone,
			"expires_at":          issued.ExpiresAt,
			"resend_available_at": issued.ResendAvailableAt,
			"resend_in":           seconds(issued.ResendIn),
		},
	})
}

// ResendIn reports how long until a new challenge may be requested
func (h *AuthHandlers) ResendIn(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	wait, err := h.identity.ResendAvailableIn(c.Request.Context(), phone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"resend_in": seconds(wait)}})
}

// VerifyOTP handles OTP verification and starts a session
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.identity.VerifyOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	if result.NeedsOnboarding {
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"phone":    result.Phone,
				"next":     "onboarding",
				"redirect": domain.OnboardingPath,
			},
		})
		return
	}

	next, redirect := "select_role", domain.RoleSelectionPath
	if p, ok := result.Session.SelectedRole(); ok {
		next, redirect = "dashboard", domain.DashboardPath(p.Role)
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access_token": result.AccessToken,
			"token_type":   "Bearer",
			"expires_in":   result.ExpiresIn,
			"session":      sessionView(result.Session),
			"next":         next,
			"redirect":     redirect,
		},
	})
}

// Session returns the current session (requires authentication)
func (h *AuthHandlers) Session(c *gin.Context) {
	session, err := h.identity.CurrentSession(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessionView(session)})
}

// SelectRole selects one of the session's roles
func (h *AuthHandlers) SelectRole(c *gin.Context) {
	var req SelectRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	session, err := h.identity.SelectRole(c.Request.Context(), middleware.SessionID(c), role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessionView(session)})
}

// SwitchRole clears the selection and re-resolves the session's roles
func (h *AuthHandlers) SwitchRole(c *gin.Context) {
	session, err := h.identity.SwitchRole(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessionView(session)})
}

// Logout handles sign-out (requires authentication)
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.identity.SignOut(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.logger.Error("logout failed", zap.String("session_id", middleware.SessionID(c)), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":  "Logged out successfully",
			"redirect": domain.LoginPath,
		},
	})
}

// Authorize evaluates the route guard for the optional session against the
// roles in the query.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	var required []domain.Role
	for _, raw := range c.QueryArray("role") {
		role, err := domain.ParseRole(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		required = append(required, role)
	}

	decision, err := h.identity.Authorize(c.Request.Context(), middleware.SessionID(c), required...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": decision})
}

// Profile returns the selected profile set by the role guard
func (h *AuthHandlers) Profile(c *gin.Context) {
	profile, ok := c.Get("selected_profile")
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "role_selection_required", "redirect": domain.RoleSelectionPath})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}
