package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccessPolicy grants an access level a method on a route pattern.
// Patterns use casbin keyMatch2 syntax.
type AccessPolicy struct {
	Role        string `yaml:"role"`
	Method      string `yaml:"method"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Validate checks a single policy entry
func (p AccessPolicy) Validate() error {
	if !strings.HasPrefix(p.Role, "role_") {
		return fmt.Errorf("policy role %q must start with role_", p.Role)
	}
	switch strings.ToUpper(p.Method) {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("policy %s: unsupported method %q", p.Path, p.Method)
	}
	if !strings.HasPrefix(p.Path, "/") {
		return fmt.Errorf("policy path %q must be absolute", p.Path)
	}
	return nil
}

// DefaultAccessPolicies is used when no policies file is present.
// role_otp_verified inherits everything granted to role_user.
func DefaultAccessPolicies() []AccessPolicy {
	return []AccessPolicy{
		{Role: "role_user", Method: http.MethodPost, Path: "/api/users/password/change"},
		{Role: "role_user", Method: http.MethodPost, Path: "/api/users/logout"},
		{Role: "role_user", Method: http.MethodGet, Path: "/api/users/me"},
		{Role: "role_user", Method: http.MethodGet, Path: "/api/users/profile"},
		{Role: "role_user", Method: http.MethodPut, Path: "/api/users/profile"},
	}
}

func loadAccessPolicies(path string) ([]AccessPolicy, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read access policies file: %w", err)
	}

	var doc struct {
		Policies []AccessPolicy `yaml:"accessPolicies"`
	}
	if err := yaml.Unmarshal(bytes, &doc); err != nil {
		return nil, fmt.Errorf("could not parse access policies yaml: %w", err)
	}

	for i := range doc.Policies {
		doc.Policies[i].Method = strings.ToUpper(doc.Policies[i].Method)
		if err := doc.Policies[i].Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Policies, nil
}
