package mocks

import "github.com/lakshman-nanchari/ai-fitness-tracker/domain"

// MockCasbinEnforcer implements the CasbinEnforcer interface for testing
type MockCasbinEnforcer struct {
	AddPolicyFunc         func(params ...interface{}) (bool, error)
	AddGroupingPolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc           func(rvals ...interface{}) (bool, error)
	GetPolicyFunc         func() ([][]string, error)
	SavePolicyFunc        func() error
	policies              [][]string
}

// Compile-time interface compliance verification
var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer creates a new MockCasbinEnforcer with default behaviors
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{}
}

// AddPolicy adds a new policy rule
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	m.policies = append(m.policies, toStrings(params))
	return true, nil
}

// AddGroupingPolicy adds a role inheritance rule
func (m *MockCasbinEnforcer) AddGroupingPolicy(params ...interface{}) (bool, error) {
	if m.AddGroupingPolicyFunc != nil {
		return m.AddGroupingPolicyFunc(params...)
	}
	return true, nil
}

// Enforce allows a request when an exact policy exists
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	want := toStrings(rvals)
	for _, p := range m.policies {
		if equalStrings(p, want) {
			return true, nil
		}
	}
	return false, nil
}

// GetPolicy returns all policies
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	result := make([][]string, len(m.policies))
	for i, policy := range m.policies {
		result[i] = append([]string(nil), policy...)
	}
	return result, nil
}

// SavePolicy saves all policies
func (m *MockCasbinEnforcer) SavePolicy() error {
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc()
	}
	return nil
}

func toStrings(params []interface{}) []string {
	out := make([]string, len(params))
	for i, p := range params {
		if s, ok := p.(string); ok {
			out[i] = s
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
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
