package mocks

import (
	"context"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockProfileResolver implements domain.ProfileResolver interface for testing
type MockProfileResolver struct {
	ResolveFunc func(ctx context.Context, canonicalPhone string, variations []string) ([]domain.RoleProfile, error)
}

// NewMockProfileResolver creates a new MockProfileResolver with default behaviors
func NewMockProfileResolver() *MockProfileResolver {
	return &MockProfileResolver{}
}

// Resolve returns the profiles behind a phone
func (m *MockProfileResolver) Resolve(ctx context.Context, canonicalPhone string, variations []string) ([]domain.RoleProfile, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, canonicalPhone, variations)
	}
	// Default behavior: no profiles
	return nil, nil
}

// Compile-time interface compliance verification
var _ domain.ProfileResolver = (*MockProfileResolver)(nil)
