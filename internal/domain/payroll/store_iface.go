package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/tax"
)

type ProfileSource interface {
	Profile(ctx context.Context, employeeCode string) (Profile, error)
}

type TemplateSource interface {
	Template(ctx context.Context, id string) (Template, error)
}

type StatutorySource interface {
	StatutoryConfig(ctx context.Context, country, state string) (StatutoryConfig, error)
}

type AttendanceSource interface {
	Attendance(ctx context.Context, employeeCode string, start, end time.Time) ([]AttendanceRecord, error)
}

type DeclarationSource interface {
	DeclaredDeduction(ctx context.Context, employeeCode, financialYear string, regime tax.Regime) (decimal.Decimal, bool, error)
}

type ConfigStore interface {
	GetProfile(ctx context.Context, employeeCode string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile) (Profile, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, t Template) (Template, error)
	UpdateTemplate(ctx context.Context, t Template) (Template, error)
	GetStatutoryConfig(ctx context.Context, country, state string) (StatutoryConfig, error)
	ListStatutoryConfigs(ctx context.Context) ([]StatutoryConfig, error)
	UpsertStatutoryConfig(ctx context.Context, c StatutoryConfig) (StatutoryConfig, error)
}

type RunStore interface {
	// SavePendingRun inserts or overwrites the PENDING run for the same
	// employee and period. An APPROVED row is never touched.
	SavePendingRun(ctx context.Context, run PayrollRun, actor Actor) (PayrollRun, error)
	GetRun(ctx context.Context, id string) (PayrollRun, error)
	// ApproveRun is a compare-and-set from PENDING to APPROVED.
	ApproveRun(ctx context.Context, id string, actor Actor) (PayrollRun, error)
	ListPreviews(ctx context.Context) ([]Preview, error)
	ListHistory(ctx context.Context, filter HistoryFilter) ([]PayrollRun, error)
}

type PayslipStore interface {
	GetPayslip(ctx context.Context, payrollID string) (Payslip, error)
	// CreateOrFetchPayslip claims the payroll id for slip and runs produce
	// while holding the claim. If another caller already holds it the
	// existing payslip is returned with created=false.
	CreateOrFetchPayslip(ctx context.Context, slip Payslip, actor Actor, produce func(context.Context) error) (Payslip, bool, error)
}
