package mocks

import (
	"strings"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateSessionTokenFunc func(sessionID, phone string) (string, error)
	ValidateSessionTokenFunc func(token string) (*domain.TokenClaims, error)
	TTLValue                 time.Duration
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTLValue: time.Hour}
}

// GenerateSessionToken issues a token for a session
func (m *MockTokenService) GenerateSessionToken(sessionID, phone string) (string, error) {
	if m.GenerateSessionTokenFunc != nil {
		return m.GenerateSessionTokenFunc(sessionID, phone)
	}
	// Default behavior: predictable token
	return "token_" + sessionID, nil
}

// ValidateSessionToken validates a token
func (m *MockTokenService) ValidateSessionToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateSessionTokenFunc != nil {
		return m.ValidateSessionTokenFunc(token)
	}
	// Default behavior: accept tokens issued by GenerateSessionToken
	if !strings.HasPrefix(token, "token_") {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now().Unix()
	return &domain.TokenClaims{
		SessionID: strings.TrimPrefix(token, "token_"),
		IssuedAt:  now,
		ExpiresAt: now + int64(m.TTLValue.Seconds()),
	}, nil
}

// TTL returns the configured token lifetime
func (m *MockTokenService) TTL() time.Duration {
	return m.TTLValue
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
