package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"hrm-payroll/internal/domain/auth"
)

type staticPerms map[string][]string

func (s staticPerms) HasPermission(_ context.Context, role, permission string) (bool, error) {
	if role == "broken" {
		return false, errors.New("policy unavailable")
	}
	for _, p := range s[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func serveWithRole(role string, h http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payroll/x/approve", nil)
	if role != "" {
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: role}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequirePermission(t *testing.T) {
	perms := staticPerms{auth.RoleHR: {auth.PermPayrollApprove}}
	h := RequirePermission(auth.PermPayrollApprove, perms)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.Equal(t, http.StatusNoContent, serveWithRole(auth.RoleHR, h).Code)
	assert.Equal(t, http.StatusForbidden, serveWithRole(auth.RoleEmployee, h).Code)
	assert.Equal(t, http.StatusUnauthorized, serveWithRole("", h).Code)
	assert.Equal(t, http.StatusInternalServerError, serveWithRole("broken", h).Code)
}

func TestCan(t *testing.T) {
	perms := staticPerms{auth.RoleHR: {auth.PermPayrollReadAll}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, Can(req, perms, auth.PermPayrollReadAll))

	req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: auth.RoleHR}))
	assert.True(t, Can(req, perms, auth.PermPayrollReadAll))
	assert.False(t, Can(req, perms, auth.PermPayrollConfigure))
}
