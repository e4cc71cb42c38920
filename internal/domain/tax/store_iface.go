package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

type SlabStore interface {
	UpsertSlabSet(ctx context.Context, set SlabSet) (SlabSet, error)
	GetSlabSet(ctx context.Context, regime Regime, financialYear string) (SlabSet, error)
	ListSlabSets(ctx context.Context) ([]SlabSet, error)
	DeleteSlabSet(ctx context.Context, regime Regime, financialYear string) error
}

type DeclarationStore interface {
	UpsertDeclaration(ctx context.Context, d Declaration) (Declaration, error)
	GetDeclaration(ctx context.Context, employeeID, financialYear string) (Declaration, error)
}

// SlabSource resolves the slabs used for computation. A missing set is
// ErrNoApplicableSlabSet.
type SlabSource interface {
	SlabsFor(ctx context.Context, regime Regime, financialYear string) ([]Slab, error)
}

// IncomeSource supplies an annual gross for projections when the employee
// has not declared yet.
type IncomeSource interface {
	AnnualGross(ctx context.Context, employeeCode string) (decimal.Decimal, error)
}
