package domain

import "time"

// Role identifies one role-scoped profile type
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBuyerSeller   Role = "buyer_seller"
	RoleBroker        Role = "broker"
	RoleDeveloper     Role = "developer"
	RoleSocietyOwner  Role = "society_owner"
	RoleSocietyMember Role = "society_member"
)

// AllRoles lists every known role in display order
var AllRoles = []Role{
	RoleAdmin,
	RoleBuyerSeller,
	RoleBroker,
	RoleDeveloper,
	RoleSocietyOwner,
	RoleSocietyMember,
}

// ParseRole validates a raw role string
func ParseRole(raw string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

// Rank returns the position of the role in AllRoles, or len(AllRoles) if unknown
func (r Role) Rank() int {
	for i, known := range AllRoles {
		if known == r {
			return i
		}
	}
	return len(AllRoles)
}

// RoleProfile is one role-scoped identity record owned by an account
type RoleProfile struct {
	Role        Role   `json:"role"`
	ProfileID   string `json:"profile_id"`
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Suspended   bool   `json:"suspended"`
}

// Account is a verified phone with the role profiles it owns
type Account struct {
	Phone    string
	Profiles []RoleProfile
}

// OTPChallenge is the server-held state of one outstanding passcode
type OTPChallenge struct {
	Phone             string
	CodeHash          string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	AttemptsRemaining int
}

// Expired reports whether the challenge is past its expiry at now
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ResendIn returns how long until a new challenge may be issued.
// It is zero once the cooldown has passed.
func (c *OTPChallenge) ResendIn(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	d := c.ResendAvailableAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IssuedChallenge is what a successful challenge request reports upward.
// The raw code never leaves the OTP service.
type IssuedChallenge struct {
	Phone             string
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	// ResendIn is the cooldown left at issue time on the service clock
	ResendIn time.Duration
}

// Session is the live authenticated context of one device
type Session struct {
	ID        string
	Phone     string
	Roles     []RoleProfile
	CreatedAt time.Time
	ExpiresAt time.Time

	selected *RoleProfile
}

// NewSession builds a session for a verified phone. A single role is
// selected immediately; with several roles the session is pending selection.
func NewSession(id, phone string, roles []RoleProfile, createdAt, expiresAt time.Time) *Session {
	s := &Session{
		ID:        id,
		Phone:     phone,
		Roles:     append([]RoleProfile(nil), roles...),
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
	if len(s.Roles) == 1 {
		_ = s.Select(s.Roles[0].Role)
	}
	return s
}

// Select is the only place the selected role is assigned
func (s *Session) Select(role Role) error {
	for i := range s.Roles {
		if s.Roles[i].Role == role {
			p := s.Roles[i]
			s.selected = &p
			return nil
		}
	}
	return ErrRoleNotOwned
}

// ClearSelection drops the selected role
func (s *Session) ClearSelection() {
	s.selected = nil
}

// ReplaceRoles swaps in a freshly resolved role list and clears the selection.
// A single fresh role is selected right away.
func (s *Session) ReplaceRoles(roles []RoleProfile) {
	s.Roles = append([]RoleProfile(nil), roles...)
	s.selected = nil
	if len(s.Roles) == 1 {
		_ = s.Select(s.Roles[0].Role)
	}
}

// SelectedRole returns the selected profile, if any
func (s *Session) SelectedRole() (RoleProfile, bool) {
	if s == nil || s.selected == nil {
		return RoleProfile{}, false
	}
	return *s.selected, true
}

// PendingSelection reports the multi-role, nothing-selected state
func (s *Session) PendingSelection() bool {
	return len(s.Roles) > 1 && s.selected == nil
}

// HasRole reports whether the session owns role
func (s *Session) HasRole(role Role) bool {
	for _, p := range s.Roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AccountIDs returns the distinct backend account ids behind the session
func (s *Session) AccountIDs() []string {
	seen := make(map[string]struct{}, len(s.Roles))
	var ids []string
	for _, p := range s.Roles {
		if p.AccountID == "" {
			continue
		}
		if _, ok := seen[p.AccountID]; ok {
			continue
		}
		seen[p.AccountID] = struct{}{}
		ids = append(ids, p.AccountID)
	}
	return ids
}

// VerifyResult is the outcome of a successful OTP verification
type VerifyResult struct {
	Phone       string
	Session     *Session
	AccessToken string
	ExpiresIn   int64
	// NeedsOnboarding is set when no profile exists for the phone; no
	// session is created in that case.
	NeedsOnboarding bool
}

// TokenClaims represents session token claims
type TokenClaims struct {
	SessionID string `json:"session_id"`
	Phone     string `json:"phone"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
