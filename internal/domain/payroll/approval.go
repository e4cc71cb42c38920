package payroll

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Approvals moves runs from PENDING to APPROVED. A second approval of the
// same run fails with ErrAlreadyApproved and changes nothing.
type Approvals struct {
	runs RunStore
}

func NewApprovals(runs RunStore) *Approvals {
	return &Approvals{runs: runs}
}

func (a *Approvals) Approve(ctx context.Context, payrollID string, actor Actor) (PayrollRun, error) {
	if _, err := uuid.Parse(payrollID); err != nil {
		return PayrollRun{}, ErrPayrollNotFound
	}
	run, err := a.runs.ApproveRun(ctx, payrollID, actor)
	if err != nil {
		return PayrollRun{}, err
	}
	slog.InfoContext(ctx, "payroll run approved",
		"payrollId", run.ID,
		"employeeCode", run.EmployeeCode,
		"approvedBy", actor.UserID,
	)
	return run, nil
}
