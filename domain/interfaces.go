package domain

import (
	"context"
	"time"
)

// Clock abstracts the current instant so expiry and cooldown logic can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now
func (SystemClock) Now() time.Time { return time.Now() }

// MessagingGateway delivers OTP codes.
// Implementations return an error wrapping ErrTransientFailure for failures
// worth one retry.
type MessagingGateway interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// ProfileStore is the backend that owns role profiles
type ProfileStore interface {
	FindProfilesByPhoneVariants(ctx context.Context, variants []string) ([]RoleProfile, error)
	IsSuspended(ctx context.Context, accountID string) (bool, error)
}

// SessionRepository persists sessions and their resolved roles
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// SelectedRoleStore keeps the durable per-device selected role marker
type SelectedRoleStore interface {
	Get(ctx context.Context, sessionID string) (Role, bool, error)
	Set(ctx context.Context, sessionID string, role Role, ttl time.Duration) error
	Clear(ctx context.Context, sessionID string) error
}

// Locker provides keyed mutual exclusion across service instances
type Locker interface {
	// Acquire blocks until the lock is held, ctx is done, or the wait
	// budget runs out (ErrLockNotAcquired).
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// CodeHasher hashes OTP codes so raw codes are never stored
type CodeHasher interface {
	Hash(code string) (string, error)
	Verify(hash, code string) bool
}

// TokenService issues and validates session bearer tokens
type TokenService interface {
	GenerateSessionToken(sessionID, phone string) (string, error)
	ValidateSessionToken(token string) (*TokenClaims, error)
	TTL() time.Duration
}

// OTPService is the OTP Challenge Manager
type OTPService interface {
	RequestChallenge(ctx context.Context, phone string) (*IssuedChallenge, error)
	Verify(ctx context.Context, phone, code string) error
	ResendAvailableIn(ctx context.Context, phone string) (time.Duration, error)
}

// ProfileResolver finds every role profile behind a phone
type ProfileResolver interface {
	Resolve(ctx context.Context, canonicalPhone string, variations []string) ([]RoleProfile, error)
}

// SessionService is the Session/Role Manager
type SessionService interface {
	StartSession(ctx context.Context, phone string, roles []RoleProfile) (*Session, error)
	CurrentSession(ctx context.Context, sessionID string) (*Session, error)
	SelectRole(ctx context.Context, sessionID string, role Role) (*Session, error)
	SwitchRole(ctx context.Context, sessionID string) (*Session, error)
	EndSession(ctx context.Context, sessionID string) error
	// Resolving reports whether a profile resolution is in flight for the session
	Resolving(sessionID string) bool
}

// AuthorizationService is the Route Authorization Guard bound to live state
type AuthorizationService interface {
	Authorize(ctx context.Context, sessionID string, required ...Role) (GuardDecision, error)
}

// IdentityService is the surface exposed to the UI/router layer
type IdentityService interface {
	RequestOTP(ctx context.Context, rawPhone string) (*IssuedChallenge, error)
	ResendAvailableIn(ctx context.Context, rawPhone string) (time.Duration, error)
	VerifyOTP(ctx context.Context, rawPhone, code string) (*VerifyResult, error)
	CurrentSession(ctx context.Context, sessionID string) (*Session, error)
	SelectRole(ctx context.Context, sessionID string, role Role) (*Session, error)
	SwitchRole(ctx context.Context, sessionID string) (*Session, error)
	SignOut(ctx context.Context, sessionID string) error
	Authorize(ctx context.Context, sessionID string, required ...Role) (GuardDecision, error)
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}
