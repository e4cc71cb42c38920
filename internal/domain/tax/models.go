package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

type Declaration struct {
	ID             string          `json:"id"`
	EmployeeID     string          `json:"employeeId"`
	FinancialYear  string          `json:"financialYear"`
	SelectedRegime Regime          `json:"selectedRegime"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	Investments    decimal.Decimal `json:"investments"`
	TaxableIncome  decimal.Decimal `json:"taxableIncome"`
	CalculatedTax  decimal.Decimal `json:"calculatedTax"`
	ProofFiles     []string        `json:"proofFiles"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type DeclarationInput struct {
	EmployeeID     string
	FinancialYear  string
	SelectedRegime Regime
	TotalIncome    decimal.Decimal
	Investments    decimal.Decimal
	ProofFiles     []string
}

type Projection struct {
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	Investments    decimal.Decimal `json:"investments"`
	TaxableIncome  decimal.Decimal `json:"taxableIncome"`
	ProjectedTax   decimal.Decimal `json:"projectedTax"`
	EmployeeCode   string          `json:"employeeCode"`
	SelectedRegime Regime          `json:"selectedRegime"`
}

// DeductionCaps bounds the investment deduction per regime.
type DeductionCaps map[Regime]decimal.Decimal

func (c DeductionCaps) Apply(regime Regime, investments decimal.Decimal) decimal.Decimal {
	limit, ok := c[regime]
	if !ok {
		return decimal.Zero
	}
	if investments.GreaterThan(limit) {
		return limit
	}
	return investments
}
