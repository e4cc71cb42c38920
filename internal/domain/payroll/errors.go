package payroll

import "hrm-payroll/internal/apperror"

var (
	ErrInvalidRunRequest   = apperror.New(apperror.KindValidation, "invalid_run_request", "invalid payroll run request")
	ErrInvalidComponent    = apperror.New(apperror.KindValidation, "invalid_component", "invalid salary component")
	ErrInvalidConfig       = apperror.New(apperror.KindValidation, "invalid_statutory_config", "invalid statutory config")
	ErrInvalidProfile      = apperror.New(apperror.KindValidation, "invalid_profile", "invalid payroll profile")
	ErrUnresolvedProfile   = apperror.New(apperror.KindNotFound, "unresolved_profile", "payroll profile not found")
	ErrTemplateNotFound    = apperror.New(apperror.KindNotFound, "template_not_found", "salary template not found")
	ErrTemplateNameTaken   = apperror.New(apperror.KindConflict, "template_name_taken", "a salary template with this name already exists")
	ErrUnknownJurisdiction = apperror.New(apperror.KindNotFound, "unknown_jurisdiction", "no statutory config for jurisdiction")
	ErrPayrollNotFound     = apperror.New(apperror.KindNotFound, "payroll_not_found", "payroll run not found")
	ErrPayslipNotFound     = apperror.New(apperror.KindNotFound, "payslip_not_found", "payslip not found")
	ErrAlreadyApproved     = apperror.New(apperror.KindConflict, "already_approved", "payroll run is already approved")
	ErrRunAlreadyApproved  = apperror.New(apperror.KindConflict, "run_already_approved", "approved payroll runs cannot be recomputed")
	ErrPayrollNotApproved  = apperror.New(apperror.KindConflict, "payroll_not_approved", "payroll run must be approved before issuing a payslip")
)
