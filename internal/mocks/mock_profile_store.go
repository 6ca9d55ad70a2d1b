package mocks

import (
	"context"
	"sync"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockProfileStore implements domain.ProfileStore interface for testing
type MockProfileStore struct {
	FindProfilesByPhoneVariantsFunc func(ctx context.Context, variants []string) ([]domain.RoleProfile, error)
	IsSuspendedFunc                 func(ctx context.Context, accountID string) (bool, error)

	mu        sync.Mutex
	findCalls int
}

// NewMockProfileStore creates a new MockProfileStore with default behaviors
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{}
}

// FindProfilesByPhoneVariants finds profiles stored under any variant
func (m *MockProfileStore) FindProfilesByPhoneVariants(ctx context.Context, variants []string) ([]domain.RoleProfile, error) {
	m.mu.Lock()
	m.findCalls++
	m.mu.Unlock()

	if m.FindProfilesByPhoneVariantsFunc != nil {
		return m.FindProfilesByPhoneVariantsFunc(ctx, variants)
	}
	// Default behavior: no profiles
	return nil, nil
}

// IsSuspended reports whether the account is suspended
func (m *MockProfileStore) IsSuspended(ctx context.Context, accountID string) (bool, error) {
	if m.IsSuspendedFunc != nil {
		return m.IsSuspendedFunc(ctx, accountID)
	}
	// Default behavior: active
	return false, nil
}

// FindCalls returns how many lookups were made
func (m *MockProfileStore) FindCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findCalls
}

// Compile-time interface compliance verification
var _ domain.ProfileStore = (*MockProfileStore)(nil)
