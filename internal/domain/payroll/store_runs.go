package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrm-payroll/internal/domain/audit"
	"hrm-payroll/internal/platform/db"
	"hrm-payroll/internal/platform/events"
)

const runColumns = `id::text, employee_code, period_start, period_end, country, state, financial_year, regime,
           basic, hra, allowances, extra_earnings, gross_salary,
           pf, esi, professional_tax, income_tax, other_deductions, total_deductions,
           net_salary, worked_days, period_working_days, status, approved_by, approved_at,
           created_at, updated_at`

func scanRun(row pgx.Row) (PayrollRun, error) {
	var r PayrollRun
	d := &r.Deductions
	err := row.Scan(&r.ID, &r.EmployeeCode, &r.PeriodStart, &r.PeriodEnd, &r.Country, &r.State, &r.FinancialYear, &r.Regime,
		&r.Basic, &r.HRA, &r.Allowances, &r.ExtraEarnings, &r.GrossSalary,
		&d.PF, &d.ESI, &d.ProfessionalTax, &d.IncomeTax, &d.Other, &d.Total,
		&r.NetSalary, &r.WorkedDays, &r.PeriodWorkingDays, &r.Status, &r.ApprovedBy, &r.ApprovedAt,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func nonNilResolved(c []ResolvedComponent) []ResolvedComponent {
	if c == nil {
		return []ResolvedComponent{}
	}
	return c
}

// SavePendingRun upserts on (employee_code, period_start, period_end). The
// conflict branch only fires for PENDING rows, so an APPROVED run yields no
// row and ErrRunAlreadyApproved.
func (s *Store) SavePendingRun(ctx context.Context, run PayrollRun, actor Actor) (PayrollRun, error) {
	var saved PayrollRun
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		d := run.Deductions
		var err error
		saved, err = scanRun(tx.QueryRow(ctx, `
    INSERT INTO payroll_runs (id, employee_code, period_start, period_end, country, state, financial_year, regime,
                              basic, hra, allowances, extra_earnings, gross_salary,
                              pf, esi, professional_tax, income_tax, other_deductions, total_deductions,
                              net_salary, worked_days, period_working_days, status, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
    ON CONFLICT (employee_code, period_start, period_end) DO UPDATE SET
      country = EXCLUDED.country,
      state = EXCLUDED.state,
      financial_year = EXCLUDED.financial_year,
      regime = EXCLUDED.regime,
      basic = EXCLUDED.basic,
      hra = EXCLUDED.hra,
      allowances = EXCLUDED.allowances,
      extra_earnings = EXCLUDED.extra_earnings,
      gross_salary = EXCLUDED.gross_salary,
      pf = EXCLUDED.pf,
      esi = EXCLUDED.esi,
      professional_tax = EXCLUDED.professional_tax,
      income_tax = EXCLUDED.income_tax,
      other_deductions = EXCLUDED.other_deductions,
      total_deductions = EXCLUDED.total_deductions,
      net_salary = EXCLUDED.net_salary,
      worked_days = EXCLUDED.worked_days,
      period_working_days = EXCLUDED.period_working_days,
      created_by = EXCLUDED.created_by,
      updated_at = now()
    WHERE payroll_runs.status = 'PENDING'
    RETURNING `+runColumns,
			run.ID, run.EmployeeCode, run.PeriodStart, run.PeriodEnd, run.Country, run.State, run.FinancialYear, run.Regime,
			run.Basic, run.HRA, run.Allowances, nonNilResolved(run.ExtraEarnings), run.GrossSalary,
			d.PF, d.ESI, d.ProfessionalTax, d.IncomeTax, nonNilResolved(d.Other), d.Total,
			run.NetSalary, run.WorkedDays, run.PeriodWorkingDays, StatusPending, actor.UserID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRunAlreadyApproved
		}
		if err != nil {
			return fmt.Errorf("save payroll run: %w", err)
		}
		return events.Enqueue(ctx, tx, EventRunComputed, AuditEntityRun, saved.ID, actor.RequestID, saved)
	})
	if err != nil {
		return PayrollRun{}, err
	}
	return saved, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (PayrollRun, error) {
	run, err := scanRun(s.DB.QueryRow(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return PayrollRun{}, ErrPayrollNotFound
	}
	if err != nil {
		return PayrollRun{}, fmt.Errorf("get payroll run: %w", err)
	}
	return run, nil
}

// ApproveRun is a single conditional update. Of two concurrent approvers
// exactly one sees a row; the other falls through to the status lookup.
func (s *Store) ApproveRun(ctx context.Context, id string, actor Actor) (PayrollRun, error) {
	var approved PayrollRun
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		var err error
		approved, err = scanRun(tx.QueryRow(ctx, `
    UPDATE payroll_runs
    SET status = 'APPROVED', approved_by = $2, approved_at = now(), updated_at = now()
    WHERE id = $1 AND status = 'PENDING'
    RETURNING `+runColumns, id, actor.UserID))
		if errors.Is(err, pgx.ErrNoRows) {
			return approvalConflict(ctx, tx, id)
		}
		if err != nil {
			return fmt.Errorf("approve payroll run: %w", err)
		}
		if err := audit.Record(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     AuditActionRunApproved,
			EntityType: AuditEntityRun,
			EntityID:   approved.ID,
			RequestID:  actor.RequestID,
			Before:     map[string]string{"status": StatusPending},
			After:      approved,
		}); err != nil {
			return err
		}
		return events.Enqueue(ctx, tx, EventRunApproved, AuditEntityRun, approved.ID, actor.RequestID, approved)
	})
	if err != nil {
		return PayrollRun{}, err
	}
	return approved, nil
}

func approvalConflict(ctx context.Context, q db.Querier, id string) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM payroll_runs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPayrollNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup payroll status: %w", err)
	}
	return ErrAlreadyApproved
}

func (s *Store) ListPreviews(ctx context.Context) ([]Preview, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id::text, r.employee_code, COALESCE(e.full_name, ''), r.basic, r.hra, r.allowances, r.net_salary, r.worked_days
    FROM payroll_runs r
    LEFT JOIN employees e ON e.employee_code = r.employee_code
    WHERE r.status = 'PENDING'
    ORDER BY r.period_start DESC, r.employee_code
  `)
	if err != nil {
		return nil, fmt.Errorf("list previews: %w", err)
	}
	defer rows.Close()

	out := []Preview{}
	for rows.Next() {
		var p Preview
		if err := rows.Scan(&p.PayrollID, &p.EmployeeCode, &p.EmployeeName, &p.Basic, &p.HRA, &p.Allowances, &p.NetPay, &p.WorkedDays); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListHistory(ctx context.Context, filter HistoryFilter) ([]PayrollRun, error) {
	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE status = 'APPROVED'`
	args := []any{}
	if filter.EmployeeCode != "" {
		args = append(args, filter.EmployeeCode)
		query += fmt.Sprintf(" AND employee_code = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY period_start DESC, employee_code LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payroll history: %w", err)
	}
	defer rows.Close()

	out := []PayrollRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
