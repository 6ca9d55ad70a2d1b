package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// writeError maps service errors to a status code and a stable error code
func writeError(c *gin.Context, err error) {
	var (
		cooldown *domain.CooldownError
		invalid  *domain.InvalidCodeError
	)
	status, body := http.StatusInternalServerError, gin.H{"error": "internal_error"}

	switch {
	case errors.As(err, &cooldown):
		c.Header("Retry-After", strconv.FormatInt(cooldown.Seconds(), 10))
		status, body = http.StatusTooManyRequests, gin.H{"error": "resend_cooldown", "retry_after": cooldown.Seconds()}
	case errors.As(err, &invalid):
		status, body = http.StatusBadRequest, gin.H{"error": "invalid_code", "attempts_remaining": invalid.AttemptsRemaining}
	case errors.Is(err, domain.ErrMalformedPhone):
		status, body = http.StatusBadRequest, gin.H{"error": "malformed_phone"}
	case errors.Is(err, domain.ErrNoActiveChallenge):
		status, body = http.StatusNotFound, gin.H{"error": "no_active_challenge"}
	case errors.Is(err, domain.ErrExpired):
		status, body = http.StatusGone, gin.H{"error": "otp_expired"}
	case errors.Is(err, domain.ErrAttemptsExhausted):
		status, body = http.StatusTooManyRequests, gin.H{"error": "attempts_exhausted"}
	case errors.Is(err, domain.ErrDeliveryFailed):
		status, body = http.StatusBadGateway, gin.H{"error": "delivery_failed"}
	case errors.Is(err, domain.ErrUnknownRole):
		status, body = http.StatusBadRequest, gin.H{"error": "unknown_role"}
	case errors.Is(err, domain.ErrRoleNotOwned):
		status, body = http.StatusForbidden, gin.H{"error": "role_not_owned"}
	case errors.Is(err, domain.ErrNoProfilesFound):
		status, body = http.StatusNotFound, gin.H{"error": "no_profiles", "redirect": domain.OnboardingPath}
	case errors.Is(err, domain.ErrAccountSuspended):
		status, body = http.StatusForbidden, gin.H{"error": "account_suspended", "redirect": domain.SuspendedPath}
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		status, body = http.StatusUnauthorized, gin.H{"error": "session_expired", "redirect": domain.LoginPath}
	case errors.Is(err, domain.ErrStaleResolution):
		status, body = http.StatusConflict, gin.H{"error": "stale_resolution"}
	case errors.Is(err, domain.ErrLockNotAcquired):
		status, body = http.StatusConflict, gin.H{"error": "busy"}
	case errors.Is(err, domain.ErrBackendUnavailable):
		status, body = http.StatusServiceUnavailable, gin.H{"error": "backend_unavailable"}
	}

	body["retryable"] = domain.Retryable(err)
	c.JSON(status, body)
}
