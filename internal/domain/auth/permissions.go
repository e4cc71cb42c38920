package auth

const (
	PermPayrollRun       = "payroll.run"
	PermPayrollApprove   = "payroll.approve"
	PermPayrollRead      = "payroll.read"
	PermPayrollReadAll   = "payroll.read.all"
	PermPayrollPayslip   = "payroll.payslip"
	PermPayrollConfigure = "payroll.configure"
	PermTaxRead          = "tax.read"
	PermTaxConfigure     = "tax.configure"
	PermTaxDeclare       = "tax.declare"
	PermAuditRead        = "audit.read"
)

const (
	RoleEmployee     = "EMPLOYEE"
	RoleHR           = "HR"
	RolePayrollAdmin = "PAYROLL_ADMIN"
	RoleAuditor      = "AUDITOR"
)

var DefaultPermissions = []string{
	PermPayrollRun,
	PermPayrollApprove,
	PermPayrollRead,
	PermPayrollReadAll,
	PermPayrollPayslip,
	PermPayrollConfigure,
	PermTaxRead,
	PermTaxConfigure,
	PermTaxDeclare,
	PermAuditRead,
}

// RolePermissions lists what each role is granted directly. Inherited grants
// come from RoleParents.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermPayrollRead,
		PermTaxRead,
		PermTaxDeclare,
	},
	RoleHR: {
		PermPayrollRun,
		PermPayrollApprove,
		PermPayrollReadAll,
		PermPayrollPayslip,
		PermAuditRead,
	},
	RolePayrollAdmin: {
		PermPayrollConfigure,
		PermTaxConfigure,
	},
	RoleAuditor: {
		PermPayrollRead,
		PermPayrollReadAll,
		PermTaxRead,
		PermAuditRead,
	},
}

// RoleParents maps a role to the role whose grants it inherits.
var RoleParents = map[string]string{
	RoleHR:           RoleEmployee,
	RolePayrollAdmin: RoleHR,
}

func KnownRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
