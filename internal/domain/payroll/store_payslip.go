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

var errPayslipClaimed = errors.New("payslip already claimed")

func (s *Store) GetPayslip(ctx context.Context, payrollID string) (Payslip, error) {
	var p Payslip
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, payroll_id::text, pdf_url, storage_key, generated_at
    FROM payslips
    WHERE payroll_id = $1
  `, payrollID).Scan(&p.ID, &p.PayrollID, &p.PDFURL, &p.StorageKey, &p.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrPayslipNotFound
	}
	if err != nil {
		return Payslip{}, fmt.Errorf("get payslip: %w", err)
	}
	return p, nil
}

// CreateOrFetchPayslip inserts the payslip row and keeps the transaction
// open while produce runs. A concurrent insert for the same payroll id waits
// on the row lock, then sees the conflict and reads the committed payslip.
func (s *Store) CreateOrFetchPayslip(ctx context.Context, slip Payslip, actor Actor, produce func(context.Context) error) (Payslip, bool, error) {
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
    INSERT INTO payslips (id, payroll_id, pdf_url, storage_key, generated_by, generated_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (payroll_id) DO NOTHING
    RETURNING generated_at
  `, slip.ID, slip.PayrollID, slip.PDFURL, slip.StorageKey, actor.UserID, slip.GeneratedAt).Scan(&slip.GeneratedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return errPayslipClaimed
		}
		if err != nil {
			return fmt.Errorf("claim payslip: %w", err)
		}
		if err := produce(ctx); err != nil {
			return err
		}
		if err := audit.Record(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     AuditActionPayslipIssued,
			EntityType: AuditEntityPayslip,
			EntityID:   slip.ID,
			RequestID:  actor.RequestID,
			After:      slip,
		}); err != nil {
			return err
		}
		return events.Enqueue(ctx, tx, EventPayslipIssued, AuditEntityRun, slip.PayrollID, actor.RequestID, slip)
	})
	if errors.Is(err, errPayslipClaimed) {
		existing, err := s.GetPayslip(ctx, slip.PayrollID)
		return existing, false, err
	}
	if err != nil {
		return Payslip{}, false, err
	}
	return slip, true, nil
}
