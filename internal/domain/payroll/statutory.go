package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
	"hrm-payroll/internal/domain/tax"
)

type DeductionInput struct {
	GrossSalary         decimal.Decimal
	Basic               decimal.Decimal
	AnnualTaxableIncome decimal.Decimal
	AttendanceRatio     decimal.Decimal
	Country             string
	State               string
	Regime              tax.Regime
	FinancialYear       string
	PeriodsPerYear      int
	TemplateDeductions  []ResolvedComponent
}

// StatutoryCalculator computes PF, ESI, professional tax and income tax for
// one pay period.
type StatutoryCalculator struct {
	configs StatutorySource
	slabs   tax.SlabSource
}

func NewStatutoryCalculator(configs StatutorySource, slabs tax.SlabSource) *StatutoryCalculator {
	return &StatutoryCalculator{configs: configs, slabs: slabs}
}

// Deductions applies the jurisdiction's rates. When nothing was worked the
// fixed amounts (professional tax and fixed template deductions) are waived
// so that a zero gross yields a zero net.
func (c *StatutoryCalculator) Deductions(ctx context.Context, in DeductionInput) (DeductionBreakdown, error) {
	cfg, err := c.configs.StatutoryConfig(ctx, in.Country, in.State)
	if err != nil {
		return DeductionBreakdown{}, err
	}
	slabs, err := c.slabs.SlabsFor(ctx, in.Regime, in.FinancialYear)
	if err != nil {
		return DeductionBreakdown{}, err
	}

	waived := !in.AttendanceRatio.IsPositive()

	pf := money.Round(money.Percent(cfg.PFPercentage, in.Basic))
	if cfg.PFContributionCap != nil && pf.GreaterThan(*cfg.PFContributionCap) {
		pf = money.Round(*cfg.PFContributionCap)
	}

	esi := decimal.Zero
	if cfg.ESIGrossCeiling == nil || in.GrossSalary.LessThanOrEqual(*cfg.ESIGrossCeiling) {
		esi = money.Round(money.Percent(cfg.ESIPercentage, in.GrossSalary))
	}

	professionalTax := money.Round(cfg.ProfessionalTax)
	if waived {
		professionalTax = decimal.Zero
	}

	annualTax, err := tax.TaxOrZero(in.AnnualTaxableIncome, slabs)
	if err != nil {
		return DeductionBreakdown{}, err
	}
	periods := in.PeriodsPerYear
	if periods <= 0 {
		periods = 12
	}
	incomeTax := money.Round(annualTax.Div(decimal.NewFromInt(int64(periods))))

	other := make([]ResolvedComponent, 0, len(in.TemplateDeductions))
	for _, d := range in.TemplateDeductions {
		amount := d.Amount
		if _, fixed := d.calc.(Fixed); fixed && waived {
			amount = decimal.Zero
		}
		other = append(other, ResolvedComponent{Name: d.Name, Amount: amount, calc: d.calc})
	}

	total := money.Sum(pf, esi, professionalTax, incomeTax)
	for _, o := range other {
		total = total.Add(o.Amount)
	}

	return DeductionBreakdown{
		PF:              pf,
		ESI:             esi,
		ProfessionalTax: professionalTax,
		IncomeTax:       incomeTax,
		Other:           other,
		Total:           total,
	}, nil
}
