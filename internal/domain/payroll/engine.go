package payroll

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"hrm-payroll/internal/domain/money"
	"hrm-payroll/internal/domain/tax"
)

type EngineConfig struct {
	PeriodsPerYear   int
	FYStartMonth     time.Month
	WorkingDaysMode  string
	BatchConcurrency int
}

// Engine runs payroll for one employee and period and stores the result as a
// PENDING preview.
type Engine struct {
	resolver     *Resolver
	attendance   AttendanceSource
	calculator   *StatutoryCalculator
	declarations DeclarationSource
	runs         RunStore
	cfg          EngineConfig
	now          func() time.Time
}

func NewEngine(resolver *Resolver, attendance AttendanceSource, calculator *StatutoryCalculator, declarations DeclarationSource, runs RunStore, cfg EngineConfig) *Engine {
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = 12
	}
	if cfg.FYStartMonth < time.January || cfg.FYStartMonth > time.December {
		cfg.FYStartMonth = time.April
	}
	if cfg.WorkingDaysMode == "" {
		cfg.WorkingDaysMode = WorkingDaysWeekdays
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	return &Engine{
		resolver:     resolver,
		attendance:   attendance,
		calculator:   calculator,
		declarations: declarations,
		runs:         runs,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (e *Engine) validate(req RunRequest) (RunRequest, error) {
	req.EmployeeCode = strings.TrimSpace(req.EmployeeCode)
	req.Country, req.State = normalizeJurisdiction(req.Country, req.State)
	switch {
	case req.EmployeeCode == "":
		return req, ErrInvalidRunRequest.With("employeeCode is required")
	case req.Country == "" || req.State == "":
		return req, ErrInvalidRunRequest.With("country and state are required")
	case req.PeriodStart.IsZero() || req.PeriodEnd.IsZero():
		return req, ErrInvalidRunRequest.With("startDate and endDate are required")
	case req.PeriodEnd.Before(req.PeriodStart):
		return req, ErrInvalidRunRequest.With("endDate must be on or after startDate")
	}
	req.PeriodStart, req.PeriodEnd = truncateDay(req.PeriodStart), truncateDay(req.PeriodEnd)
	return req, nil
}

// Compute builds the run without storing it.
func (e *Engine) Compute(ctx context.Context, req RunRequest) (PayrollRun, error) {
	req, err := e.validate(req)
	if err != nil {
		return PayrollRun{}, err
	}

	structure, profile, err := e.resolver.ResolveFor(ctx, req.EmployeeCode)
	if err != nil {
		return PayrollRun{}, err
	}

	records, err := e.attendance.Attendance(ctx, req.EmployeeCode, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return PayrollRun{}, err
	}
	prorated, worked, workingDays, ratio := ProrateByAttendance(structure, records, req.PeriodStart, req.PeriodEnd, e.cfg.WorkingDaysMode)

	financialYear := tax.FinancialYearFor(req.PeriodStart, e.cfg.FYStartMonth)
	annualTaxable := prorated.GrossSalary.Mul(decimal.NewFromInt(int64(e.cfg.PeriodsPerYear)))
	if e.declarations != nil {
		deduction, _, err := e.declarations.DeclaredDeduction(ctx, req.EmployeeCode, financialYear, profile.TaxRegime)
		if err != nil {
			return PayrollRun{}, err
		}
		annualTaxable = annualTaxable.Sub(deduction)
	}
	annualTaxable = money.Round(money.NonNegative(annualTaxable))

	breakdown, err := e.calculator.Deductions(ctx, DeductionInput{
		GrossSalary:         prorated.GrossSalary,
		Basic:               prorated.Basic,
		AnnualTaxableIncome: annualTaxable,
		AttendanceRatio:     ratio,
		Country:             req.Country,
		State:               req.State,
		Regime:              profile.TaxRegime,
		FinancialYear:       financialYear,
		PeriodsPerYear:      e.cfg.PeriodsPerYear,
		TemplateDeductions:  prorated.Deductions,
	})
	if err != nil {
		return PayrollRun{}, err
	}

	now := e.now().UTC()
	return PayrollRun{
		ID:                uuid.NewString(),
		EmployeeCode:      req.EmployeeCode,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		Country:           req.Country,
		State:             req.State,
		FinancialYear:     financialYear,
		Regime:            profile.TaxRegime,
		Basic:             prorated.Basic,
		HRA:               prorated.HRA,
		Allowances:        prorated.Allowances,
		ExtraEarnings:     prorated.ExtraEarnings,
		GrossSalary:       prorated.GrossSalary,
		Deductions:        breakdown,
		NetSalary:         prorated.GrossSalary.Sub(breakdown.Total),
		WorkedDays:        worked,
		PeriodWorkingDays: workingDays,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Run computes and stores a PENDING run. Nothing is written when any step
// fails, and a re-run overwrites the previous PENDING result for the period.
func (e *Engine) Run(ctx context.Context, req RunRequest, actor Actor) (PayrollRun, error) {
	run, err := e.Compute(ctx, req)
	if err != nil {
		return PayrollRun{}, err
	}
	saved, err := e.runs.SavePendingRun(ctx, run, actor)
	if err != nil {
		return PayrollRun{}, err
	}
	slog.InfoContext(ctx, "payroll run computed",
		"payrollId", saved.ID,
		"employeeCode", saved.EmployeeCode,
		"periodStart", saved.PeriodStart.Format(time.DateOnly),
		"periodEnd", saved.PeriodEnd.Format(time.DateOnly),
		"gross", saved.GrossSalary.String(),
		"net", saved.NetSalary.String(),
	)
	return saved, nil
}

type BatchResult struct {
	EmployeeCode string      `json:"employeeCode"`
	Run          *PayrollRun `json:"run,omitempty"`
	Err          error       `json:"-"`
}

// RunBatch runs several employees for the same period. Each employee
// succeeds or fails on its own.
func (e *Engine) RunBatch(ctx context.Context, employeeCodes []string, country, state string, start, end time.Time, actor Actor) []BatchResult {
	codes := lo.Uniq(lo.Filter(lo.Map(employeeCodes, func(code string, _ int) string {
		return strings.TrimSpace(code)
	}), func(code string, _ int) bool {
		return code != ""
	}))

	results := make([]BatchResult, len(codes))
	var g errgroup.Group
	g.SetLimit(e.cfg.BatchConcurrency)
	for i, code := range codes {
		g.Go(func() error {
			run, err := e.Run(ctx, RunRequest{
				EmployeeCode: code,
				Country:      country,
				State:        state,
				PeriodStart:  start,
				PeriodEnd:    end,
			}, actor)
			results[i] = BatchResult{EmployeeCode: code, Err: err}
			if err == nil {
				results[i].Run = &run
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
