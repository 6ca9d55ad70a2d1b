package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/casbin/casbin/v2"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

const subjectPrefix = "role_"

var methodPattern = regexp.MustCompile(`^(\*|[A-Z]+|\([A-Z]+(\|[A-Z]+)*\))$`)

// SubjectForRole is the Casbin subject a selected role is enforced as
func SubjectForRole(role domain.Role) string {
	return subjectPrefix + string(role)
}

// CasbinEnforcerWrapper wraps the real Casbin enforcer to implement our interface
type CasbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcerWrapper creates a wrapper for the real Casbin enforcer
func NewCasbinEnforcerWrapper(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &CasbinEnforcerWrapper{enforcer: enforcer}
}

func (w *CasbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *CasbinEnforcerWrapper) RemovePolicy(params ...interface{}) (bool, error) {
	return w.enforcer.RemovePolicy(params...)
}

func (w *CasbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

func (w *CasbinEnforcerWrapper) GetPolicy() ([][]string, error) {
	return w.enforcer.GetPolicy()
}

func (w *CasbinEnforcerWrapper) SavePolicy() error {
	return w.enforcer.SavePolicy()
}

// PolicyServiceImpl implements domain.PolicyService using Casbin.
// Subjects are role subjects ("role_broker"); resources are route patterns.
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service
func NewPolicyService(enforcer *casbin.Enforcer) domain.PolicyService {
	return NewPolicyServiceWithEnforcer(NewCasbinEnforcerWrapper(enforcer))
}

// NewPolicyServiceWithEnforcer creates a policy service over any CasbinEnforcer
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) domain.PolicyService {
	return &PolicyServiceImpl{enforcer: enforcer}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	if err := validateRule(role, resource, action); err != nil {
		return err
	}
	if _, err := p.enforcer.AddPolicy(role, resource, action); err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// RemovePolicy implements domain.PolicyService
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	if err := validateRule(role, resource, action); err != nil {
		return err
	}
	if _, err := p.enforcer.RemovePolicy(role, resource, action); err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}

// validateRule accepts only subjects that name a known role
func validateRule(subject, resource, action string) error {
	if !strings.HasPrefix(subject, subjectPrefix) {
		return fmt.Errorf("%w: subject %q must start with %q", domain.ErrUnknownRole, subject, subjectPrefix)
	}
	if _, err := domain.ParseRole(strings.TrimPrefix(subject, subjectPrefix)); err != nil {
		return fmt.Errorf("%w: %q", err, subject)
	}
	if !strings.HasPrefix(resource, "/") {
		return fmt.Errorf("%w: resource %q must be an absolute path", ErrInvalidPolicy, resource)
	}
	if !methodPattern.MatchString(action) {
		return fmt.Errorf("%w: action %q", ErrInvalidPolicy, action)
	}
	return nil
}
