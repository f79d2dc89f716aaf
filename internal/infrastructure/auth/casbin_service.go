package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/config"
	"gorm.io/gorm"
)

// AccessModel grants a subject a route when it or a role it inherits from
// holds a matching policy.
const AccessModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService builds an enforcer whose policies persist in db. An
// empty modelPath selects AccessModel.
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}

	m, err := loadModel(modelPath)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m, adp)
	if err != nil {
		return nil, err
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, err
	}
	return &CasbinService{E: e}, nil
}

// NewMemoryCasbinService builds an enforcer without persistence
func NewMemoryCasbinService() (*CasbinService, error) {
	m, err := loadModel("")
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	return &CasbinService{E: e}, nil
}

// Seed installs the elevation hierarchy and the configured route grants.
// Existing rules are left as they are.
func (s *CasbinService) Seed(policies []config.AccessPolicy) error {
	if _, err := s.E.AddGroupingPolicy(domain.RoleOTPVerified, domain.RoleAuthenticated); err != nil {
		return fmt.Errorf("seed role hierarchy: %w", err)
	}
	for _, p := range policies {
		if _, err := s.E.AddPolicy(p.Role, p.Path, p.Method); err != nil {
			return fmt.Errorf("seed policy %s %s: %w", p.Method, p.Path, err)
		}
	}
	return nil
}

func loadModel(path string) (model.Model, error) {
	if path == "" {
		return model.NewModelFromString(AccessModel)
	}
	m, err := model.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("casbin model %s: %w", path, err)
	}
	return m, nil
}
