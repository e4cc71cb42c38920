package payroll

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"

	AttendancePresent = "PRESENT"
	AttendanceHalfDay = "HALF_DAY"
	AttendanceAbsent  = "ABSENT"

	WorkingDaysWeekdays = "weekdays"
	WorkingDaysCalendar = "calendar"

	ComponentHRA = "HRA"

	EventRunComputed   = "payroll.run.computed"
	EventRunApproved   = "payroll.run.approved"
	EventPayslipIssued = "payroll.payslip.issued"

	AuditActionRunApproved   = "payroll.approve"
	AuditActionPayslipIssued = "payroll.payslip.generate"
	AuditEntityRun           = "payroll_run"
	AuditEntityPayslip       = "payslip"
)
