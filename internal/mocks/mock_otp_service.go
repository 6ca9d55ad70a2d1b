package mocks

import (
	"context"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	RequestChallengeFunc  func(ctx context.Context, phone string) (*domain.IssuedChallenge, error)
	VerifyFunc            func(ctx context.Context, phone, code string) error
	ResendAvailableInFunc func(ctx context.Context, phone string) (time.Duration, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// RequestChallenge issues a challenge for phone
func (m *MockOTPService) RequestChallenge(ctx context.Context, phone string) (*domain.IssuedChallenge, error) {
	if m.RequestChallengeFunc != nil {
		return m.RequestChallengeFunc(ctx, phone)
	}
	// Default behavior: issued now with the standard windows
	now := time.Now()
	return &domain.IssuedChallenge{
		Phone:             phone,
		ExpiresAt:         now.Add(5 * time.Minute),
		ResendAvailableAt: now.Add(60 * time.Second),
		ResendIn:          60 * time.Second,
	}, nil
}

// Verify checks code against the active challenge
func (m *MockOTPService) Verify(ctx context.Context, phone, code string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, phone, code)
	}
	// Default behavior: accept any code
	return nil
}

// ResendAvailableIn reports the remaining cooldown
func (m *MockOTPService) ResendAvailableIn(ctx context.Context, phone string) (time.Duration, error) {
	if m.ResendAvailableInFunc != nil {
		return m.ResendAvailableInFunc(ctx, phone)
	}
	// Default behavior: resend allowed
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
