package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPolicies are seeded when the policy table is empty.
// Subjects are "role_" + the session's selected role.
var DefaultPolicies = [][]string{
	{"role_admin", "/admin/*", "(GET|POST|DELETE)"},
	{"role_admin", "/api/*", "(GET|POST|PUT|DELETE)"},
	{"role_buyer_seller", "/api/*", "(GET|POST)"},
	{"role_broker", "/api/*", "(GET|POST)"},
	{"role_developer", "/api/*", "(GET|POST)"},
	{"role_society_owner", "/api/*", "(GET|POST)"},
	{"role_society_member", "/api/*", "GET"},
}

type CasbinService struct{ E *casbin.Enforcer }

func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	e, err := casbin.NewEnforcer(modelPath, adp)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("casbin load policy: %w", err)
	}
	return &CasbinService{E: e}, nil
}

// SeedDefaults installs DefaultPolicies when no policy exists yet
func (s *CasbinService) SeedDefaults(logger *zap.Logger) error {
	policies, err := s.E.GetPolicy()
	if err != nil {
		return err
	}
	if len(policies) > 0 {
		return nil
	}
	if _, err := s.E.AddPolicies(DefaultPolicies); err != nil {
		return fmt.Errorf("seed policies: %w", err)
	}
	if logger != nil {
		logger.Info("casbin: seeded default policies", zap.Int("count", len(DefaultPolicies)))
	}
	return nil
}
