package mocks

import (
	"context"
	"sync"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// SentOTP records one delivery attempt
type SentOTP struct {
	Phone string
	Code  string
}

// MockMessagingGateway implements domain.MessagingGateway interface for testing
type MockMessagingGateway struct {
	SendOTPFunc func(ctx context.Context, phone, code string) error

	mu   sync.Mutex
	sent []SentOTP
}

// NewMockMessagingGateway creates a new MockMessagingGateway with default behaviors
func NewMockMessagingGateway() *MockMessagingGateway {
	return &MockMessagingGateway{}
}

// SendOTP records the attempt and delegates to SendOTPFunc
func (m *MockMessagingGateway) SendOTP(ctx context.Context, phone, code string) error {
	m.mu.Lock()
	m.sent = append(m.sent, SentOTP{Phone: phone, Code: code})
	m.mu.Unlock()

	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone, code)
	}
	// Default behavior: delivered
	return nil
}

// Sent returns every recorded attempt
func (m *MockMessagingGateway) Sent() []SentOTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentOTP(nil), m.sent...)
}

// LastCode returns the code of the latest attempt, or "" if none
func (m *MockMessagingGateway) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Code
}

// Compile-time interface compliance verification
var _ domain.MessagingGateway = (*MockMessagingGateway)(nil)
