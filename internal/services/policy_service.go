package services

import (
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

var _ domain.CasbinEnforcer = (*casbin.Enforcer)(nil)

// PolicyServiceImpl answers route access questions from casbin policies
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a policy service over a casbin enforcer or a test double
func NewPolicyService(enforcer domain.CasbinEnforcer) *PolicyServiceImpl {
	return &PolicyServiceImpl{enforcer: enforcer}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	_, err := p.enforcer.AddPolicy(role, routeKey(resource), strings.ToUpper(action))
	return err
}

// CheckPermission implements domain.PolicyService. The method is matched
// case-insensitively and a trailing slash on the route is ignored.
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	if role == "" {
		return false, nil
	}
	return p.enforcer.Enforce(role, routeKey(resource), strings.ToUpper(action))
}

// GetPolicies implements domain.PolicyService, ordered by route then method
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, err := p.enforcer.GetPolicy()
	if err != nil {
		return nil
	}
	sort.SliceStable(policies, func(i, j int) bool {
		if policies[i][1] != policies[j][1] {
			return policies[i][1] < policies[j][1]
		}
		return policies[i][2] < policies[j][2]
	})
	return policies
}

func routeKey(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

