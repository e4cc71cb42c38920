package taxhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm-payroll/internal/domain/auth"
	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/transport/http/middleware"
)

type memSlabs struct{ sets map[string]tax.SlabSet }

func (m *memSlabs) key(regime tax.Regime, fy string) string { return string(regime) + "/" + fy }

func (m *memSlabs) Save(_ context.Context, set tax.SlabSet) (tax.SlabSet, error) {
	if err := set.Validate(); err != nil {
		return tax.SlabSet{}, err
	}
	m.sets[m.key(set.Regime, set.FinancialYear)] = set
	return set, nil
}

func (m *memSlabs) Get(_ context.Context, regime tax.Regime, fy string) (tax.SlabSet, error) {
	set, ok := m.sets[m.key(regime, fy)]
	if !ok {
		return tax.SlabSet{}, tax.ErrSlabSetNotFound
	}
	return set, nil
}

func (m *memSlabs) List(context.Context) ([]tax.SlabSet, error) {
	out := []tax.SlabSet{}
	for _, set := range m.sets {
		out = append(out, set)
	}
	return out, nil
}

func (m *memSlabs) Delete(_ context.Context, regime tax.Regime, fy string) error {
	if _, ok := m.sets[m.key(regime, fy)]; !ok {
		return tax.ErrSlabSetNotFound
	}
	delete(m.sets, m.key(regime, fy))
	return nil
}

type fakeDeclarations struct {
	saved     []tax.DeclarationInput
	stored    map[string]tax.Declaration
	projected []tax.Regime
}

func (f *fakeDeclarations) CreateOrUpdate(_ context.Context, in tax.DeclarationInput) (tax.Declaration, error) {
	f.saved = append(f.saved, in)
	decl := tax.Declaration{EmployeeID: in.EmployeeID, FinancialYear: in.FinancialYear, SelectedRegime: in.SelectedRegime}
	f.stored[in.EmployeeID+"/"+in.FinancialYear] = decl
	return decl, nil
}

func (f *fakeDeclarations) Get(_ context.Context, employeeID, fy string) (tax.Declaration, error) {
	decl, ok := f.stored[employeeID+"/"+fy]
	if !ok {
		return tax.Declaration{}, tax.ErrDeclarationNotFound
	}
	return decl, nil
}

func (f *fakeDeclarations) Projection(_ context.Context, code, fy string, regime tax.Regime) (tax.Projection, error) {
	f.projected = append(f.projected, regime)
	return tax.Projection{EmployeeCode: code, SelectedRegime: regime}, nil
}

type perms map[string][]string

func (p perms) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, perm := range p[role] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	slabs  *memSlabs
	decls  *fakeDeclarations
	router chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		slabs: &memSlabs{sets: map[string]tax.SlabSet{}},
		decls: &fakeDeclarations{stored: map[string]tax.Declaration{}},
	}
	p := perms{
		auth.RoleEmployee:     {auth.PermTaxRead, auth.PermTaxDeclare},
		auth.RolePayrollAdmin: {auth.PermTaxRead, auth.PermTaxConfigure},
		auth.RoleHR:           {auth.PermTaxRead, auth.PermTaxDeclare, auth.PermPayrollReadAll},
	}
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserContext{UserID: "u1", Role: r.Header.Get("X-Role"), EmployeeCode: r.Header.Get("X-Employee")}
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
		})
	})
	NewHandler(f.slabs, f.decls, p).RegisterRoutes(router)
	f.router = router
	return f
}

func (f *fixture) do(method, target, role, employee, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("X-Role", role)
	req.Header.Set("X-Employee", employee)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

const newRegimeSlabs = `{"slabs":[{"min":"0","max":"300000","rate":"0"},{"min":"300000","max":null,"rate":"5"}]}`

func TestSlabLifecycle(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPut, "/tax/slabs/new/2024-25", auth.RolePayrollAdmin, "", newRegimeSlabs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	set, ok := f.slabs.sets["NEW/2024-25"]
	require.True(t, ok)
	require.Len(t, set.Slabs, 2)
	assert.Nil(t, set.Slabs[1].Max)
	assert.True(t, decimal.NewFromInt(5).Equal(set.Slabs[1].Rate))

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/tax/slabs/NEW/2024-25", auth.RoleEmployee, "E1", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/tax/slabs/NEW/2024-25", auth.RoleEmployee, "E1", newRegimeSlabs).Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/tax/slabs/NEW/2024-25", auth.RolePayrollAdmin, "", "").Code)
	rec = f.do(http.MethodGet, "/tax/slabs/NEW/2024-25", auth.RoleEmployee, "E1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "slab_set_not_found", errorCode(t, rec))
}

func TestSlabPathValidation(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/tax/slabs/FLAT/2024-25", auth.RoleEmployee, "E1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_regime", errorCode(t, rec))

	rec = f.do(http.MethodGet, "/tax/slabs/NEW/2024-26", auth.RoleEmployee, "E1", "")
	assert.Equal(t, "invalid_financial_year", errorCode(t, rec))
}

func TestDeclareFilesUnderCaller(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/tax/declarations", auth.RoleEmployee, "E1",
		`{"financialYear":"2024-25","selectedRegime":"old","totalIncome":"900000","investments":"200000","proofFiles":["80c.pdf"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.decls.saved, 1)
	assert.Equal(t, "E1", f.decls.saved[0].EmployeeID)
	assert.Equal(t, tax.RegimeOld, f.decls.saved[0].SelectedRegime)
	assert.True(t, decimal.NewFromInt(200000).Equal(f.decls.saved[0].Investments))

	rec = f.do(http.MethodPost, "/tax/declarations", auth.RoleEmployee, "", `{"financialYear":"2024-25","selectedRegime":"OLD"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "no_employee_record", errorCode(t, rec))
}

func TestDeclareOnBehalfNeedsReadAll(t *testing.T) {
	f := newFixture()
	body := `{"employeeId":"E2","financialYear":"2024-25","selectedRegime":"NEW","totalIncome":"700000"}`

	rec := f.do(http.MethodPost, "/tax/declarations", auth.RoleEmployee, "E1", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorCode(t, rec))
	assert.Empty(t, f.decls.saved)

	rec = f.do(http.MethodPost, "/tax/declarations", auth.RoleHR, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.decls.saved, 1)
	assert.Equal(t, "E2", f.decls.saved[0].EmployeeID)

	rec = f.do(http.MethodPost, "/tax/declarations", auth.RoleEmployee, "E2", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	f.decls.stored["E2/2024-25"] = tax.Declaration{EmployeeID: "E2", SelectedRegime: tax.RegimeNew}
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/tax/declarations/2024-25?employeeId=E2", auth.RoleHR, "", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/tax/declarations/2024-25?employeeId=E2", auth.RoleEmployee, "E1", "").Code)
}

func TestProjectionRegimeDefaults(t *testing.T) {
	f := newFixture()
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/tax/projection?financialYear=2024-25", auth.RoleEmployee, "E1", "").Code)
	f.decls.stored["E1/2024-25"] = tax.Declaration{SelectedRegime: tax.RegimeOld}
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/tax/projection?financialYear=2024-25", auth.RoleEmployee, "E1", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/tax/projection?financialYear=2024-25&regime=new", auth.RoleEmployee, "E1", "").Code)
	assert.Equal(t, []tax.Regime{tax.RegimeNew, tax.RegimeOld, tax.RegimeNew}, f.decls.projected)
}
