package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Phone errors
var (
	ErrMalformedPhone = errors.New("malformed phone number")
)

// OTP errors
var (
	ErrResendCooldownActive = errors.New("otp resend cooldown active")
	ErrNoActiveChallenge    = errors.New("no active otp challenge")
	ErrExpired              = errors.New("otp has expired")
	ErrAttemptsExhausted    = errors.New("maximum otp attempts exceeded")
	ErrInvalidCode          = errors.New("invalid otp code")
	ErrDeliveryFailed       = errors.New("otp delivery failed")
	ErrTransientFailure     = errors.New("transient messaging failure")
)

// Profile and session errors
var (
	ErrRoleNotOwned       = errors.New("role not owned by session")
	ErrUnknownRole        = errors.New("unknown role")
	ErrNoProfilesFound    = errors.New("no profiles found for phone")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrBackendUnavailable = errors.New("profile backend unavailable")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session has expired")
	ErrStaleResolution    = errors.New("profile resolution superseded")
	ErrLockNotAcquired    = errors.New("lock not acquired")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// CooldownError carries the wait before a new challenge may be requested
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: resend in %d seconds", ErrResendCooldownActive, e.Seconds())
}

// Seconds rounds the remaining wait up to whole seconds
func (e *CooldownError) Seconds() int64 {
	if e.Remaining <= 0 {
		return 0
	}
	return int64(math.Ceil(e.Remaining.Seconds()))
}

func (e *CooldownError) Is(target error) bool { return target == ErrResendCooldownActive }

// InvalidCodeError carries the attempts left on the challenge
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidCode, e.AttemptsRemaining)
}

func (e *InvalidCodeError) Is(target error) bool { return target == ErrInvalidCode }

// Retryable reports whether the caller may simply retry the failed operation.
// Exhausted challenges need a fresh challenge and suspension is terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrAttemptsExhausted), errors.Is(err, ErrAccountSuspended):
		return false
	}
	return true
}
