package services

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

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

// PolicyServiceImpl implements domain.PolicyService using Casbin. Roles are
// stored under their casbin subject ("role_<role>"); the adapter persists
// every change as it is made.
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service
func NewPolicyService(enforcer *casbin.Enforcer) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		enforcer: NewCasbinEnforcerWrapper(enforcer),
	}
}

// NewPolicyServiceWithEnforcer creates a new policy service with a CasbinEnforcer interface (for testing)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		enforcer: enforcer,
	}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	if _, err := p.enforcer.AddPolicy(domain.Role(role).Subject(), resource, action); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}

// RemovePolicy implements domain.PolicyService
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	if _, err := p.enforcer.RemovePolicy(domain.Role(role).Subject(), resource, action); err != nil {
		return fmt.Errorf("failed to remove policy: %w", err)
	}
	return nil
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(domain.Role(role).Subject(), resource, action)
}

// GetPolicies implements domain.PolicyService. Subjects are returned as role names.
func (p *PolicyServiceImpl) GetPolicies() ([][]string, error) {
	policies, err := p.enforcer.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	out := make([][]string, 0, len(policies))
	for _, rule := range policies {
		r := append([]string(nil), rule...)
		if len(r) > 0 {
			r[0] = strings.TrimPrefix(r[0], "role_")
		}
		out = append(out, r)
	}
	return out, nil
}

// DefaultPolicies grants every role its own profile and super admins the
// policy administration routes.
func DefaultPolicies() [][3]string {
	return [][3]string{
		{string(domain.RolePayer), "/api/v1/auth/me", "GET"},
		{string(domain.RoleMonitor), "/api/v1/auth/me", "GET"},
		{string(domain.RoleHospitalAdmin), "/api/v1/auth/me", "GET"},
		{string(domain.RoleSuperAdmin), "/api/v1/auth/me", "GET"},
		{string(domain.RoleSuperAdmin), "/api/v1/admin/*", "(GET)|(POST)|(DELETE)"},
	}
}

// SeedDefaultPolicies adds DefaultPolicies. Existing rules are left untouched.
func SeedDefaultPolicies(svc domain.PolicyService) error {
	for _, rule := range DefaultPolicies() {
		if err := svc.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.PolicyService = (*PolicyServiceImpl)(nil)
