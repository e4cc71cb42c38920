package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type policyFunc func(ctx context.Context) ([]RolePermission, error)

func (f policyFunc) RolePermissions(ctx context.Context) ([]RolePermission, error) {
	return f(ctx)
}

func newLoadedEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer()
	require.NoError(t, err)
	require.NoError(t, e.Load(DefaultPolicies()))
	return e
}

func TestEnforcerDirectGrants(t *testing.T) {
	e := newLoadedEnforcer(t)
	ctx := context.Background()

	ok, err := e.HasPermission(ctx, RoleEmployee, PermTaxDeclare)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.HasPermission(ctx, RoleEmployee, PermPayrollApprove)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.HasPermission(ctx, RoleAuditor, PermPayrollRun)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnforcerInheritsThroughHierarchy(t *testing.T) {
	e := newLoadedEnforcer(t)
	ctx := context.Background()

	for _, perm := range []string{PermPayrollConfigure, PermPayrollApprove, PermTaxDeclare} {
		ok, err := e.HasPermission(ctx, RolePayrollAdmin, perm)
		require.NoError(t, err)
		assert.True(t, ok, perm)
	}

	ok, err := e.HasPermission(ctx, RoleHR, PermPayrollConfigure)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnforcerUnknownRoleDenied(t *testing.T) {
	ok, err := newLoadedEnforcer(t).HasPermission(context.Background(), "GUEST", PermPayrollRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnforcerLoadFromReplacesPolicy(t *testing.T) {
	e := newLoadedEnforcer(t)
	ctx := context.Background()

	err := e.LoadFrom(ctx, policyFunc(func(context.Context) ([]RolePermission, error) {
		return []RolePermission{{Role: RoleAuditor, Permission: PermPayrollRun}}, nil
	}))
	require.NoError(t, err)

	ok, _ := e.HasPermission(ctx, RoleAuditor, PermPayrollRun)
	assert.True(t, ok)
	ok, _ = e.HasPermission(ctx, RoleEmployee, PermTaxDeclare)
	assert.False(t, ok)

	boom := errors.New("db down")
	err = e.LoadFrom(ctx, policyFunc(func(context.Context) ([]RolePermission, error) { return nil, boom }))
	assert.ErrorIs(t, err, boom)
}
