package taxhandler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/auth"
	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/transport/http/api"
	"hrm-payroll/internal/transport/http/middleware"
	"hrm-payroll/internal/transport/http/shared"
)

type SlabManager interface {
	Save(ctx context.Context, set tax.SlabSet) (tax.SlabSet, error)
	Get(ctx context.Context, regime tax.Regime, financialYear string) (tax.SlabSet, error)
	List(ctx context.Context) ([]tax.SlabSet, error)
	Delete(ctx context.Context, regime tax.Regime, financialYear string) error
}

type Declarations interface {
	CreateOrUpdate(ctx context.Context, in tax.DeclarationInput) (tax.Declaration, error)
	Get(ctx context.Context, employeeID, financialYear string) (tax.Declaration, error)
	Projection(ctx context.Context, employeeCode, financialYear string, regime tax.Regime) (tax.Projection, error)
}

type Handler struct {
	Slabs        SlabManager
	Declarations Declarations
	Perms        middleware.PermissionStore
}

func NewHandler(slabs SlabManager, declarations Declarations, perms middleware.PermissionStore) *Handler {
	return &Handler{Slabs: slabs, Declarations: declarations, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tax", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermTaxRead, h.Perms)).Get("/slabs", h.handleListSlabs)
		r.With(middleware.RequirePermission(auth.PermTaxRead, h.Perms)).Get("/slabs/{regime}/{financialYear}", h.handleGetSlabs)
		r.With(middleware.RequirePermission(auth.PermTaxConfigure, h.Perms)).Put("/slabs/{regime}/{financialYear}", h.handlePutSlabs)
		r.With(middleware.RequirePermission(auth.PermTaxConfigure, h.Perms)).Delete("/slabs/{regime}/{financialYear}", h.handleDeleteSlabs)

		r.With(middleware.RequirePermission(auth.PermTaxDeclare, h.Perms)).Post("/declarations", h.handleDeclare)
		r.With(middleware.RequirePermission(auth.PermTaxDeclare, h.Perms)).Get("/declarations/{financialYear}", h.handleGetDeclaration)
		r.With(middleware.RequirePermission(auth.PermTaxDeclare, h.Perms)).Get("/projection", h.handleProjection)
	})
}

func (h *Handler) handleListSlabs(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sets, err := h.Slabs.List(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, sets, requestID)
}

func slabKey(r *http.Request) (tax.Regime, string, error) {
	regime, err := tax.ParseRegime(chi.URLParam(r, "regime"))
	if err != nil {
		return "", "", err
	}
	fy := chi.URLParam(r, "financialYear")
	if !tax.ValidFinancialYear(fy) {
		return "", "", tax.ErrInvalidFinancialYear
	}
	return regime, fy, nil
}

func (h *Handler) handleGetSlabs(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	regime, fy, err := slabKey(r)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	set, err := h.Slabs.Get(r.Context(), regime, fy)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, set, requestID)
}

type slabsPayload struct {
	Slabs []tax.Slab `json:"slabs" validate:"required,min=1"`
}

func (h *Handler) handlePutSlabs(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	regime, fy, err := slabKey(r)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	var payload slabsPayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	saved, err := h.Slabs.Save(r.Context(), tax.SlabSet{Regime: regime, FinancialYear: fy, Slabs: payload.Slabs})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, saved, requestID)
}

func (h *Handler) handleDeleteSlabs(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	regime, fy, err := slabKey(r)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if err := h.Slabs.Delete(r.Context(), regime, fy); err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, requestID)
}

type declarationPayload struct {
	EmployeeID     string          `json:"employeeId" validate:"omitempty,max=64"`
	FinancialYear  string          `json:"financialYear" validate:"required"`
	SelectedRegime string          `json:"selectedRegime" validate:"required"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	Investments    decimal.Decimal `json:"investments"`
	ProofFiles     []string        `json:"proofFiles" validate:"max=20,dive,required,max=512"`
}

// declarant returns the employee code declarations are filed under. An
// explicit employee id other than the caller's needs payroll.read.all.
func (h *Handler) declarant(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	user, _ := middleware.GetUser(r.Context())
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != user.EmployeeCode {
		if !middleware.Can(r, h.Perms, auth.PermPayrollReadAll) {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot act on another employee's declaration", middleware.GetRequestID(r.Context()))
			return "", false
		}
		return requested, true
	}
	if strings.TrimSpace(user.EmployeeCode) == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_record", "caller is not linked to an employee", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return user.EmployeeCode, true
}

func (h *Handler) handleDeclare(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload declarationPayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	employeeCode, ok := h.declarant(w, r, payload.EmployeeID)
	if !ok {
		return
	}
	regime, err := tax.ParseRegime(payload.SelectedRegime)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	saved, err := h.Declarations.CreateOrUpdate(r.Context(), tax.DeclarationInput{
		EmployeeID:     employeeCode,
		FinancialYear:  payload.FinancialYear,
		SelectedRegime: regime,
		TotalIncome:    payload.TotalIncome,
		Investments:    payload.Investments,
		ProofFiles:     payload.ProofFiles,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, saved, requestID)
}

func (h *Handler) handleGetDeclaration(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	employeeCode, ok := h.declarant(w, r, r.URL.Query().Get("employeeId"))
	if !ok {
		return
	}
	decl, err := h.Declarations.Get(r.Context(), employeeCode, chi.URLParam(r, "financialYear"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, decl, requestID)
}

// handleProjection defaults the regime to the one on the employee's
// declaration, then to NEW.
func (h *Handler) handleProjection(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	employeeCode, ok := h.declarant(w, r, r.URL.Query().Get("employeeId"))
	if !ok {
		return
	}
	fy := r.URL.Query().Get("financialYear")
	rawRegime := r.URL.Query().Get("regime")

	regime := tax.RegimeNew
	if rawRegime != "" {
		parsed, err := tax.ParseRegime(rawRegime)
		if err != nil {
			api.FailError(w, err, requestID)
			return
		}
		regime = parsed
	} else if tax.ValidFinancialYear(fy) {
		decl, err := h.Declarations.Get(r.Context(), employeeCode, fy)
		switch {
		case err == nil:
			regime = decl.SelectedRegime
		case !errors.Is(err, tax.ErrDeclarationNotFound):
			api.FailError(w, err, requestID)
			return
		}
	}

	projection, err := h.Declarations.Projection(r.Context(), employeeCode, fy, regime)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, projection, requestID)
}
