package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// PolicySource supplies the role grants the enforcer is built from.
type PolicySource interface {
	RolePermissions(ctx context.Context) ([]RolePermission, error)
}

type RolePermission struct {
	Role       string
	Permission string
}

// Enforcer answers permission checks for roles with casbin. Policies are
// held in memory and replaced wholesale by Load.
type Enforcer struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	return &Enforcer{enforcer: e}, nil
}

// DefaultPolicies flattens RolePermissions into rows.
func DefaultPolicies() []RolePermission {
	var out []RolePermission
	for role, perms := range RolePermissions {
		for _, perm := range perms {
			out = append(out, RolePermission{Role: role, Permission: perm})
		}
	}
	return out
}

// Load replaces the policy with rows plus the built-in role hierarchy.
func (e *Enforcer) Load(rows []RolePermission) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enforcer.ClearPolicy()
	for _, row := range rows {
		if _, err := e.enforcer.AddPolicy(row.Role, row.Permission); err != nil {
			return err
		}
	}
	for child, parent := range RoleParents {
		if _, err := e.enforcer.AddGroupingPolicy(child, parent); err != nil {
			return err
		}
	}
	slog.Info("rbac policy loaded", "grants", len(rows), "inherits", len(RoleParents))
	return nil
}

// LoadFrom reads grants from src and loads them.
func (e *Enforcer) LoadFrom(ctx context.Context, src PolicySource) error {
	rows, err := src.RolePermissions(ctx)
	if err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}
	return e.Load(rows)
}

func (e *Enforcer) HasPermission(_ context.Context, role, permission string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enforcer.Enforce(role, permission)
}
