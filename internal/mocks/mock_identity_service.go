package mocks

import (
	"context"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockIdentityService implements domain.IdentityService interface for testing
type MockIdentityService struct {
	RequestOTPFunc        func(ctx context.Context, rawPhone string) (*domain.IssuedChallenge, error)
	ResendAvailableInFunc func(ctx context.Context, rawPhone string) (time.Duration, error)
	VerifyOTPFunc         func(ctx context.Context, rawPhone, code string) (*domain.VerifyResult, error)
	CurrentSessionFunc    func(ctx context.Context, sessionID string) (*domain.Session, error)
	SelectRoleFunc        func(ctx context.Context, sessionID string, role domain.Role) (*domain.Session, error)
	SwitchRoleFunc        func(ctx context.Context, sessionID string) (*domain.Session, error)
	SignOutFunc           func(ctx context.Context, sessionID string) error
	AuthorizeFunc         func(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error)
}

// NewMockIdentityService creates a new MockIdentityService with default behaviors
func NewMockIdentityService() *MockIdentityService {
	return &MockIdentityService{}
}

func (m *MockIdentityService) RequestOTP(ctx context.Context, rawPhone string) (*domain.IssuedChallenge, error) {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, rawPhone)
	}
	now := time.Now()
	return &domain.IssuedChallenge{Phone: rawPhone, ExpiresAt: now.Add(5 * time.Minute), ResendAvailableAt: now.Add(time.Minute), ResendIn: time.Minute}, nil
}

func (m *MockIdentityService) ResendAvailableIn(ctx context.Context, rawPhone string) (time.Duration, error) {
	if m.ResendAvailableInFunc != nil {
		return m.ResendAvailableInFunc(ctx, rawPhone)
	}
	return 0, nil
}

func (m *MockIdentityService) VerifyOTP(ctx context.Context, rawPhone, code string) (*domain.VerifyResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, rawPhone, code)
	}
	return &domain.VerifyResult{Phone: rawPhone, NeedsOnboarding: true}, nil
}

func (m *MockIdentityService) CurrentSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.CurrentSessionFunc != nil {
		return m.CurrentSessionFunc(ctx, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockIdentityService) SelectRole(ctx context.Context, sessionID string, role domain.Role) (*domain.Session, error) {
	if m.SelectRoleFunc != nil {
		return m.SelectRoleFunc(ctx, sessionID, role)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockIdentityService) SwitchRole(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.SwitchRoleFunc != nil {
		return m.SwitchRoleFunc(ctx, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockIdentityService) SignOut(ctx context.Context, sessionID string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockIdentityService) Authorize(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, sessionID, required...)
	}
	return domain.GuardDecision{State: domain.GuardUnauthenticated, Redirect: domain.LoginPath}, nil
}

// Compile-time interface compliance verification
var _ domain.IdentityService = (*MockIdentityService)(nil)
