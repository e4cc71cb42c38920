package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"hrm-payroll/internal/apperror"
	"hrm-payroll/internal/domain/auth"
	"hrm-payroll/internal/domain/payroll"
	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/platform/events"
	"hrm-payroll/internal/platform/jobs"
	"hrm-payroll/internal/transport/http/api"
	"hrm-payroll/internal/transport/http/middleware"
	"hrm-payroll/internal/transport/http/shared"
)

type Runner interface {
	Run(ctx context.Context, req payroll.RunRequest, actor payroll.Actor) (payroll.PayrollRun, error)
	RunBatch(ctx context.Context, employeeCodes []string, country, state string, start, end time.Time, actor payroll.Actor) []payroll.BatchResult
}

type Approver interface {
	Approve(ctx context.Context, payrollID string, actor payroll.Actor) (payroll.PayrollRun, error)
}

type Ledger interface {
	Get(ctx context.Context, payrollID string) (payroll.PayrollRun, error)
	Previews(ctx context.Context) ([]payroll.Preview, error)
	History(ctx context.Context, filter payroll.HistoryFilter) ([]payroll.PayrollRun, error)
	ExportHistory(ctx context.Context, filter payroll.HistoryFilter, w io.Writer) error
}

type Payslips interface {
	Generate(ctx context.Context, payrollID string, actor payroll.Actor) (payroll.Payslip, bool, error)
	Open(ctx context.Context, payrollID string) (payroll.Payslip, []byte, error)
}

type Configurator interface {
	Profile(ctx context.Context, employeeCode string) (payroll.Profile, error)
	SaveProfile(ctx context.Context, p payroll.Profile) (payroll.Profile, error)
	Template(ctx context.Context, id string) (payroll.Template, error)
	ListTemplates(ctx context.Context) ([]payroll.Template, error)
	CreateTemplate(ctx context.Context, t payroll.Template) (payroll.Template, error)
	UpdateTemplate(ctx context.Context, t payroll.Template) (payroll.Template, error)
	GetStatutoryConfig(ctx context.Context, country, state string) (payroll.StatutoryConfig, error)
	ListStatutoryConfigs(ctx context.Context) ([]payroll.StatutoryConfig, error)
	SaveStatutoryConfig(ctx context.Context, cfg payroll.StatutoryConfig) (payroll.StatutoryConfig, error)
}

type EventSource interface {
	Subscribe() (<-chan events.Event, func())
}

type JobRunner interface {
	RunNow(ctx context.Context, jobType string, run jobs.RunFunc) (any, error)
}

type Handler struct {
	Runs        Runner
	Approvals   Approver
	Ledger      Ledger
	Payslips    Payslips
	Config      Configurator
	Events      EventSource
	Jobs        JobRunner
	Perms       middleware.PermissionStore
	Idempotency middleware.IdempotencyRepository

	// KeepAlive is the SSE comment interval.
	KeepAlive time.Duration
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	require := func(perm string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(perm, h.Perms)
	}
	r.Route("/payroll", func(r chi.Router) {
		run := r.With(require(auth.PermPayrollRun))
		if h.Idempotency != nil {
			run = run.With(middleware.Idempotency(h.Idempotency))
		}
		run.Post("/run", h.handleRun)
		run.Post("/run/batch", h.handleRunBatch)

		r.With(require(auth.PermPayrollReadAll)).Get("/previews", h.handlePreviews)
		r.With(require(auth.PermPayrollRead)).Get("/history", h.handleHistory)
		r.With(require(auth.PermPayrollReadAll)).Get("/history/export", h.handleExportHistory)
		r.With(require(auth.PermPayrollReadAll)).Get("/events", h.handleEvents)

		r.With(require(auth.PermPayrollRead)).Get("/profiles/{employeeCode}", h.handleGetProfile)
		r.With(require(auth.PermPayrollConfigure)).Put("/profiles/{employeeCode}", h.handlePutProfile)
		r.With(require(auth.PermPayrollConfigure)).Get("/templates", h.handleListTemplates)
		r.With(require(auth.PermPayrollConfigure)).Post("/templates", h.handleCreateTemplate)
		r.With(require(auth.PermPayrollConfigure)).Get("/templates/{templateID}", h.handleGetTemplate)
		r.With(require(auth.PermPayrollConfigure)).Put("/templates/{templateID}", h.handleUpdateTemplate)
		r.With(require(auth.PermPayrollConfigure)).Get("/statutory", h.handleListStatutory)
		r.With(require(auth.PermPayrollConfigure)).Get("/statutory/{country}/{state}", h.handleGetStatutory)
		r.With(require(auth.PermPayrollConfigure)).Put("/statutory/{country}/{state}", h.handlePutStatutory)

		r.With(require(auth.PermPayrollRead)).Get("/payslips/{payrollID}/pdf", h.handleDownloadPayslip)
		r.With(require(auth.PermPayrollRead)).Get("/{payrollID}", h.handleGetRun)
		r.With(require(auth.PermPayrollApprove)).Post("/{payrollID}/approve", h.handleApprove)
		r.With(require(auth.PermPayrollPayslip)).Post("/{payrollID}/payslip", h.handleGeneratePayslip)
	})
}

func actorFrom(r *http.Request) payroll.Actor {
	user, _ := middleware.GetUser(r.Context())
	return payroll.Actor{
		UserID:       user.UserID,
		EmployeeCode: user.EmployeeCode,
		Role:         user.Role,
		RequestID:    middleware.GetRequestID(r.Context()),
	}
}

type runPayload struct {
	EmployeeCode string `json:"employeeCode" validate:"required,max=64"`
	Country      string `json:"country" validate:"required,len=2"`
	State        string `json:"state" validate:"required,max=8"`
	StartDate    string `json:"startDate" validate:"required"`
	EndDate      string `json:"endDate" validate:"required"`
}

type batchPayload struct {
	EmployeeCodes []string `json:"employeeCodes" validate:"required,min=1,max=500,dive,required"`
	Country       string   `json:"country" validate:"required,len=2"`
	State         string   `json:"state" validate:"required,max=8"`
	StartDate     string   `json:"startDate" validate:"required"`
	EndDate       string   `json:"endDate" validate:"required"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload runPayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestID) {
		return
	}

	run, err := h.Runs.Run(r.Context(), payroll.RunRequest{
		EmployeeCode: payload.EmployeeCode,
		Country:      payload.Country,
		State:        payload.State,
		PeriodStart:  start,
		PeriodEnd:    end,
	}, actorFrom(r))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, run, requestID)
}

type batchItem struct {
	EmployeeCode string              `json:"employeeCode"`
	Success      bool                `json:"success"`
	Run          *payroll.PayrollRun `json:"run,omitempty"`
	Error        *api.Error          `json:"error,omitempty"`
}

func (h *Handler) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload batchPayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestID) {
		return
	}

	actor := actorFrom(r)
	batch := func(ctx context.Context) (any, error) {
		return h.Runs.RunBatch(ctx, payload.EmployeeCodes, payload.Country, payload.State, start, end, actor), nil
	}
	var out any
	var err error
	if h.Jobs != nil {
		out, err = h.Jobs.RunNow(r.Context(), jobs.JobPayrollBatch, batch)
	} else {
		out, err = batch(r.Context())
	}
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}

	results, _ := out.([]payroll.BatchResult)
	items := lo.Map(results, func(res payroll.BatchResult, _ int) batchItem {
		item := batchItem{EmployeeCode: res.EmployeeCode, Success: res.Err == nil, Run: res.Run}
		if res.Err != nil {
			item.Error = &api.Error{Code: "internal_error", Message: "payroll run failed"}
			if appErr, ok := apperror.As(res.Err); ok {
				item.Error = &api.Error{Code: appErr.Code, Message: appErr.Message}
			}
		}
		return item
	})
	api.Success(w, map[string]any{
		"results":   items,
		"succeeded": lo.CountBy(items, func(item batchItem) bool { return item.Success }),
		"failed":    lo.CountBy(items, func(item batchItem) bool { return !item.Success }),
	}, requestID)
}

func (h *Handler) handlePreviews(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	previews, err := h.Ledger.Previews(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, previews, requestID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	run, err := h.Approvals.Approve(r.Context(), chi.URLParam(r, "payrollID"), actorFrom(r))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, run, requestID)
}

// historyFilter scopes the query to the caller unless they may read all
// employees. ok is false when the caller asked for someone else's history.
func (h *Handler) historyFilter(r *http.Request) (payroll.HistoryFilter, bool) {
	page := shared.ParsePagination(r, 50, 200)
	filter := payroll.HistoryFilter{
		EmployeeCode: strings.TrimSpace(r.URL.Query().Get("employeeCode")),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	if middleware.Can(r, h.Perms, auth.PermPayrollReadAll) {
		return filter, true
	}
	user, _ := middleware.GetUser(r.Context())
	if user.EmployeeCode == "" {
		return filter, false
	}
	if filter.EmployeeCode != "" && filter.EmployeeCode != user.EmployeeCode {
		return filter, false
	}
	filter.EmployeeCode = user.EmployeeCode
	return filter, true
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter, ok := h.historyFilter(r)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another employee's payroll", requestID)
		return
	}
	runs, err := h.Ledger.History(r.Context(), filter)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, runs, requestID)
}

func (h *Handler) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter := payroll.HistoryFilter{EmployeeCode: strings.TrimSpace(r.URL.Query().Get("employeeCode"))}
	var buf bytes.Buffer
	if err := h.Ledger.ExportHistory(r.Context(), filter, &buf); err != nil {
		api.FailError(w, err, requestID)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payroll-history-%s.xlsx", time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ownsRun reports whether the caller may see run.
func (h *Handler) ownsRun(r *http.Request, employeeCode string) bool {
	if middleware.Can(r, h.Perms, auth.PermPayrollReadAll) {
		return true
	}
	user, _ := middleware.GetUser(r.Context())
	return user.EmployeeCode != "" && user.EmployeeCode == employeeCode
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	run, err := h.Ledger.Get(r.Context(), chi.URLParam(r, "payrollID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if !h.ownsRun(r, run.EmployeeCode) {
		api.FailError(w, payroll.ErrPayrollNotFound, requestID)
		return
	}
	api.Success(w, run, requestID)
}

func (h *Handler) handleGeneratePayslip(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	slip, created, err := h.Payslips.Generate(r.Context(), chi.URLParam(r, "payrollID"), actorFrom(r))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	if !created {
		api.FailWithDetails(w, http.StatusConflict, "payslip_exists", "payslip already generated",
			map[string]any{"payslip": map[string]string{"pdfUrl": slip.PDFURL}}, requestID)
		return
	}
	api.Success(w, map[string]string{"pdfUrl": slip.PDFURL}, requestID)
}

func (h *Handler) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	payrollID := chi.URLParam(r, "payrollID")
	if !middleware.Can(r, h.Perms, auth.PermPayrollReadAll) {
		run, err := h.Ledger.Get(r.Context(), payrollID)
		if err != nil || !h.ownsRun(r, run.EmployeeCode) {
			api.FailError(w, payroll.ErrPayslipNotFound, requestID)
			return
		}
	}
	slip, data, err := h.Payslips.Open(r.Context(), payrollID)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%s.pdf", slip.PayrollID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type profilePayload struct {
	EmployeeName    string                  `json:"employeeName" validate:"max=200"`
	SalaryStructure payroll.SalaryStructure `json:"salaryStructure"`
	BankDetails     payroll.BankDetails     `json:"bankDetails"`
	TaxRegime       string                  `json:"taxRegime" validate:"required"`
	TemplateID      *string                 `json:"templateId"`
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	code := chi.URLParam(r, "employeeCode")
	if !h.ownsRun(r, code) {
		api.FailError(w, payroll.ErrUnresolvedProfile, requestID)
		return
	}
	profile, err := h.Config.Profile(r.Context(), code)
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, profile, requestID)
}

func (h *Handler) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload profilePayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	saved, err := h.Config.SaveProfile(r.Context(), payroll.Profile{
		EmployeeCode:    chi.URLParam(r, "employeeCode"),
		EmployeeName:    payload.EmployeeName,
		SalaryStructure: payload.SalaryStructure,
		BankDetails:     payload.BankDetails,
		TaxRegime:       tax.Regime(payload.TaxRegime),
		TemplateID:      payload.TemplateID,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, saved, requestID)
}

type templatePayload struct {
	Name       string              `json:"name" validate:"required,max=200"`
	Earnings   []payroll.Component `json:"earnings"`
	Deductions []payroll.Component `json:"deductions"`
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	templates, err := h.Config.ListTemplates(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, templates, requestID)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	tmpl, err := h.Config.Template(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, tmpl, requestID)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload templatePayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	created, err := h.Config.CreateTemplate(r.Context(), payroll.Template{
		Name:       payload.Name,
		Earnings:   payload.Earnings,
		Deductions: payload.Deductions,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload templatePayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	updated, err := h.Config.UpdateTemplate(r.Context(), payroll.Template{
		ID:         chi.URLParam(r, "templateID"),
		Name:       payload.Name,
		Earnings:   payload.Earnings,
		Deductions: payload.Deductions,
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

type statutoryPayload struct {
	PFPercentage      decimal.Decimal  `json:"pfPercentage"`
	ESIPercentage     decimal.Decimal  `json:"esiPercentage"`
	ProfessionalTax   decimal.Decimal  `json:"professionalTax"`
	PFContributionCap *decimal.Decimal `json:"pfContributionCap"`
	ESIGrossCeiling   *decimal.Decimal `json:"esiGrossCeiling"`
	Active            *bool            `json:"active"`
}

func (h *Handler) handleListStatutory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	configs, err := h.Config.ListStatutoryConfigs(r.Context())
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, configs, requestID)
}

func (h *Handler) handleGetStatutory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	cfg, err := h.Config.GetStatutoryConfig(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "state"))
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, cfg, requestID)
}

func (h *Handler) handlePutStatutory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload statutoryPayload
	v := shared.NewValidator()
	if !v.Bind(r, &payload) {
		v.Reject(w, requestID)
		return
	}
	saved, err := h.Config.SaveStatutoryConfig(r.Context(), payroll.StatutoryConfig{
		Country:           chi.URLParam(r, "country"),
		State:             chi.URLParam(r, "state"),
		PFPercentage:      payload.PFPercentage,
		ESIPercentage:     payload.ESIPercentage,
		ProfessionalTax:   payload.ProfessionalTax,
		PFContributionCap: payload.PFContributionCap,
		ESIGrossCeiling:   payload.ESIGrossCeiling,
		Active:            lo.FromPtrOr(payload.Active, true),
	})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, saved, requestID)
}

// handleEvents streams relayed payroll events as server-sent events until
// the client goes away.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok || h.Events == nil {
		api.Fail(w, http.StatusNotImplemented, "streaming_unsupported", "event streaming is not available", requestID)
		return
	}
	stream, cancel := h.Events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case evt, open := <-stream:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", evt.ID, evt.Type, data)
			flusher.Flush()
		}
	}
}
