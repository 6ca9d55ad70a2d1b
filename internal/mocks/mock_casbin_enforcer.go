package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockCasbinEnforcer implements the CasbinEnforcer interface for testing.
// Without EnforceFunc it allows a request when a stored rule has the same
// subject and method and its object equals the path or is a "/prefix/*" match.
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)
	SavePolicyFunc   func() error

	mu       sync.Mutex
	policies [][]string
	saves    int
}

// Compile-time interface compliance verification
var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer creates an enforcer holding policies
func NewMockCasbinEnforcer(policies ...[]string) *MockCasbinEnforcer {
	m := &MockCasbinEnforcer{}
	for _, p := range policies {
		m.policies = append(m.policies, append([]string(nil), p...))
	}
	return m
}

func toRule(params []interface{}) []string {
	rule := make([]string, len(params))
	for i, p := range params {
		rule[i] = fmt.Sprint(p)
	}
	return rule
}

func sameRule(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddPolicy adds a new policy rule
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	rule := toRule(params)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.policies {
		if sameRule(p, rule) {
			return false, nil
		}
	}
	m.policies = append(m.policies, rule)
	return true, nil
}

// RemovePolicy removes a policy rule
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}
	rule := toRule(params)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.policies {
		if sameRule(p, rule) {
			m.policies = append(m.policies[:i], m.policies[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Enforce checks if a request should be allowed
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	if len(rvals) < 3 {
		return false, fmt.Errorf("enforce needs sub, obj, act; got %d values", len(rvals))
	}
	req := toRule(rvals[:3])

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.policies {
		if len(p) < 3 || p[0] != req[0] {
			continue
		}
		if !pathMatches(p[1], req[1]) {
			continue
		}
		if p[2] == req[2] || strings.Contains("|"+strings.Trim(p[2], "()")+"|", "|"+req[2]+"|") {
			return true, nil
		}
	}
	return false, nil
}

func pathMatches(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}

// GetPolicy returns all policies
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]string, len(m.policies))
	for i, p := range m.policies {
		result[i] = append([]string(nil), p...)
	}
	return result, nil
}

// SavePolicy saves all policies
func (m *MockCasbinEnforcer) SavePolicy() error {
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc()
	}
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	return nil
}

// Saves returns how many times SavePolicy ran
func (m *MockCasbinEnforcer) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
