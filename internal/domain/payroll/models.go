package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/tax"
)

type SalaryStructure struct {
	Basic      decimal.Decimal `json:"basic"`
	HRA        decimal.Decimal `json:"hra"`
	Allowances decimal.Decimal `json:"allowances"`
}

type BankDetails struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bankName"`
}

// Profile is the payroll view of an employee. EmployeeName is owned by the
// employee directory and only read here.
type Profile struct {
	EmployeeCode    string          `json:"employeeCode"`
	EmployeeName    string          `json:"employeeName"`
	SalaryStructure SalaryStructure `json:"salaryStructure"`
	BankDetails     BankDetails     `json:"bankDetails"`
	TaxRegime       tax.Regime      `json:"taxRegime"`
	TemplateID      *string         `json:"templateId,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type Template struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Earnings   []Component `json:"earnings"`
	Deductions []Component `json:"deductions"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// StatutoryConfig holds the rates for one (country, state). A nil cap or
// ceiling means none applies.
type StatutoryConfig struct {
	Country           string           `json:"country"`
	State             string           `json:"state"`
	PFPercentage      decimal.Decimal  `json:"pfPercentage"`
	ESIPercentage     decimal.Decimal  `json:"esiPercentage"`
	ProfessionalTax   decimal.Decimal  `json:"professionalTax"`
	PFContributionCap *decimal.Decimal `json:"pfContributionCap"`
	ESIGrossCeiling   *decimal.Decimal `json:"esiGrossCeiling"`
	Active            bool             `json:"active"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type ResolvedComponent struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`

	calc Calculation
}

type ResolvedStructure struct {
	Basic         decimal.Decimal     `json:"basic"`
	HRA           decimal.Decimal     `json:"hra"`
	Allowances    decimal.Decimal     `json:"allowances"`
	ExtraEarnings []ResolvedComponent `json:"extraEarnings"`
	Deductions    []ResolvedComponent `json:"extraDeductions"`
	GrossSalary   decimal.Decimal     `json:"grossSalary"`
}

type DeductionBreakdown struct {
	PF              decimal.Decimal     `json:"pf"`
	ESI             decimal.Decimal     `json:"esi"`
	ProfessionalTax decimal.Decimal     `json:"professionalTax"`
	IncomeTax       decimal.Decimal     `json:"incomeTax"`
	Other           []ResolvedComponent `json:"other"`
	Total           decimal.Decimal     `json:"total"`
}

type AttendanceRecord struct {
	EmployeeCode string    `json:"employeeCode"`
	Day          time.Time `json:"day"`
	Status       string    `json:"status"`
}

type PayrollRun struct {
	ID                string              `json:"payrollId"`
	EmployeeCode      string              `json:"employeeCode"`
	PeriodStart       time.Time           `json:"periodStart"`
	PeriodEnd         time.Time           `json:"periodEnd"`
	Country           string              `json:"country"`
	State             string              `json:"state"`
	FinancialYear     string              `json:"financialYear"`
	Regime            tax.Regime          `json:"regime"`
	Basic             decimal.Decimal     `json:"basic"`
	HRA               decimal.Decimal     `json:"hra"`
	Allowances        decimal.Decimal     `json:"allowances"`
	ExtraEarnings     []ResolvedComponent `json:"extraEarnings"`
	GrossSalary       decimal.Decimal     `json:"grossSalary"`
	Deductions        DeductionBreakdown  `json:"deductions"`
	NetSalary         decimal.Decimal     `json:"netSalary"`
	WorkedDays        decimal.Decimal     `json:"workedDays"`
	PeriodWorkingDays int                 `json:"periodWorkingDays"`
	Status            string              `json:"status"`
	ApprovedBy        *string             `json:"approvedBy,omitempty"`
	ApprovedAt        *time.Time          `json:"approvedAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

type Preview struct {
	PayrollID    string          `json:"payrollId"`
	EmployeeCode string          `json:"employeeCode"`
	EmployeeName string          `json:"employeeName"`
	Basic        decimal.Decimal `json:"basic"`
	HRA          decimal.Decimal `json:"hra"`
	Allowances   decimal.Decimal `json:"allowances"`
	NetPay       decimal.Decimal `json:"netPay"`
	WorkedDays   decimal.Decimal `json:"workedDays"`
}

type Payslip struct {
	ID          string    `json:"id"`
	PayrollID   string    `json:"payrollId"`
	PDFURL      string    `json:"pdfUrl"`
	StorageKey  string    `json:"-"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type HistoryFilter struct {
	EmployeeCode string
	Limit        int
	Offset       int
}

type RunRequest struct {
	EmployeeCode string
	Country      string
	State        string
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// Actor is the authenticated caller, passed explicitly from the request.
type Actor struct {
	UserID       string
	EmployeeCode string
	Role         string
	RequestID    string
}
