package tax

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
)

// Engine computes and stores annual self-declared tax.
type Engine struct {
	store  DeclarationStore
	slabs  SlabSource
	income IncomeSource
	caps   DeductionCaps
}

func NewEngine(store DeclarationStore, slabs SlabSource, income IncomeSource, caps DeductionCaps) *Engine {
	return &Engine{store: store, slabs: slabs, income: income, caps: caps}
}

// Compute returns the taxable income and tax for one set of declared figures.
func (e *Engine) Compute(ctx context.Context, financialYear string, regime Regime, totalIncome, investments decimal.Decimal) (taxable, tax decimal.Decimal, err error) {
	slabs, err := e.slabs.SlabsFor(ctx, regime, financialYear)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	deduction := e.caps.Apply(regime, investments)
	taxable = money.Round(money.NonNegative(totalIncome.Sub(deduction)))
	tax, err = TaxOrZero(taxable, slabs)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return taxable, tax, nil
}

func (e *Engine) CreateOrUpdate(ctx context.Context, in DeclarationInput) (Declaration, error) {
	if err := validateInput(in); err != nil {
		return Declaration{}, err
	}
	taxable, tax, err := e.Compute(ctx, in.FinancialYear, in.SelectedRegime, in.TotalIncome, in.Investments)
	if err != nil {
		return Declaration{}, err
	}
	proofs := in.ProofFiles
	if proofs == nil {
		proofs = []string{}
	}
	saved, err := e.store.UpsertDeclaration(ctx, Declaration{
		EmployeeID:     in.EmployeeID,
		FinancialYear:  in.FinancialYear,
		SelectedRegime: in.SelectedRegime,
		TotalIncome:    money.Round(in.TotalIncome),
		Investments:    money.Round(in.Investments),
		TaxableIncome:  taxable,
		CalculatedTax:  tax,
		ProofFiles:     proofs,
	})
	if err != nil {
		return Declaration{}, err
	}
	slog.InfoContext(ctx, "tax declaration saved",
		"employeeId", saved.EmployeeID,
		"financialYear", saved.FinancialYear,
		"regime", saved.SelectedRegime,
	)
	return saved, nil
}

func (e *Engine) Get(ctx context.Context, employeeID, financialYear string) (Declaration, error) {
	return e.store.GetDeclaration(ctx, employeeID, financialYear)
}

// Projection recomputes the caller's figures under regime without saving.
// Without a declaration the profile's annual gross stands in for income.
func (e *Engine) Projection(ctx context.Context, employeeCode, financialYear string, regime Regime) (Projection, error) {
	if !ValidFinancialYear(financialYear) {
		return Projection{}, ErrInvalidFinancialYear
	}
	totalIncome, investments := decimal.Zero, decimal.Zero
	current, err := e.store.GetDeclaration(ctx, employeeCode, financialYear)
	switch {
	case err == nil:
		totalIncome, investments = current.TotalIncome, current.Investments
	case errors.Is(err, ErrDeclarationNotFound):
		if e.income == nil {
			return Projection{}, err
		}
		totalIncome, err = e.income.AnnualGross(ctx, employeeCode)
		if err != nil {
			return Projection{}, err
		}
	default:
		return Projection{}, err
	}

	taxable, tax, err := e.Compute(ctx, financialYear, regime, totalIncome, investments)
	if err != nil {
		return Projection{}, err
	}
	return Projection{
		TotalIncome:    money.Round(totalIncome),
		Investments:    money.Round(investments),
		TaxableIncome:  taxable,
		ProjectedTax:   tax,
		EmployeeCode:   employeeCode,
		SelectedRegime: regime,
	}, nil
}

// DeclaredDeduction returns the capped investment deduction from the
// employee's declaration for the year, if one exists.
func (e *Engine) DeclaredDeduction(ctx context.Context, employeeCode, financialYear string, regime Regime) (decimal.Decimal, bool, error) {
	current, err := e.store.GetDeclaration(ctx, employeeCode, financialYear)
	if errors.Is(err, ErrDeclarationNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return e.caps.Apply(regime, current.Investments), true, nil
}

func validateInput(in DeclarationInput) error {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return ErrInvalidDeclaration.With("employeeId is required")
	}
	if !ValidFinancialYear(in.FinancialYear) {
		return ErrInvalidFinancialYear
	}
	if _, err := ParseRegime(string(in.SelectedRegime)); err != nil {
		return err
	}
	if in.TotalIncome.IsNegative() {
		return ErrNonPositiveIncome.With("totalIncome must not be negative")
	}
	if in.Investments.IsNegative() {
		return ErrInvalidDeclaration.With("investments must not be negative")
	}
	return nil
}
