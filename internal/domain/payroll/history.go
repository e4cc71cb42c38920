package payroll

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	exportHistoryLimit  = 10000
	historySheet        = "Payroll history"
)

// Ledger answers read queries over stored runs.
type Ledger struct {
	runs RunStore
}

func NewLedger(runs RunStore) *Ledger {
	return &Ledger{runs: runs}
}

func (l *Ledger) Get(ctx context.Context, payrollID string) (PayrollRun, error) {
	if _, err := uuid.Parse(payrollID); err != nil {
		return PayrollRun{}, ErrPayrollNotFound
	}
	return l.runs.GetRun(ctx, payrollID)
}

func (l *Ledger) Previews(ctx context.Context) ([]Preview, error) {
	return l.runs.ListPreviews(ctx)
}

func (l *Ledger) History(ctx context.Context, filter HistoryFilter) ([]PayrollRun, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return l.runs.ListHistory(ctx, filter)
}

// ExportHistory writes approved runs as an xlsx workbook.
func (l *Ledger) ExportHistory(ctx context.Context, filter HistoryFilter, w io.Writer) error {
	filter.Limit, filter.Offset = exportHistoryLimit, 0
	runs, err := l.runs.ListHistory(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(historySheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headers := []string{"Payroll ID", "Employee", "Period start", "Period end", "Worked days", "Basic", "HRA", "Allowances",
		"Gross", "PF", "ESI", "Professional tax", "Income tax", "Total deductions", "Net", "Approved by", "Approved at"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(historySheet, cell, header); err != nil {
			return err
		}
	}

	for i, run := range runs {
		row := i + 2
		values := []any{
			run.ID,
			run.EmployeeCode,
			run.PeriodStart.Format(time.DateOnly),
			run.PeriodEnd.Format(time.DateOnly),
			run.WorkedDays.InexactFloat64(),
			run.Basic.InexactFloat64(),
			run.HRA.InexactFloat64(),
			run.Allowances.InexactFloat64(),
			run.GrossSalary.InexactFloat64(),
			run.Deductions.PF.InexactFloat64(),
			run.Deductions.ESI.InexactFloat64(),
			run.Deductions.ProfessionalTax.InexactFloat64(),
			run.Deductions.IncomeTax.InexactFloat64(),
			run.Deductions.Total.InexactFloat64(),
			run.NetSalary.InexactFloat64(),
			deref(run.ApprovedBy),
			"",
		}
		if run.ApprovedAt != nil {
			values[len(values)-1] = run.ApprovedAt.UTC().Format(time.RFC3339)
		}
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
