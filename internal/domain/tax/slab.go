package tax

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
)

// Slab is one progressive bracket. Max is nil for the open-ended top slab.
// Rate is a percentage.
type Slab struct {
	Min  decimal.Decimal  `json:"min"`
	Max  *decimal.Decimal `json:"max"`
	Rate decimal.Decimal  `json:"rate"`
}

type SlabSet struct {
	Regime        Regime    `json:"regime"`
	FinancialYear string    `json:"financialYear"`
	Slabs         []Slab    `json:"slabs"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Tax computes marginal tax on income. Each slab taxes only the part of
// income inside it; income equal to a boundary stays in the lower slab.
func Tax(income decimal.Decimal, slabs []Slab) (decimal.Decimal, error) {
	if len(slabs) == 0 {
		return decimal.Zero, ErrNoApplicableSlabSet
	}
	if !income.IsPositive() {
		return decimal.Zero, ErrNonPositiveIncome
	}

	total := decimal.Zero
	for _, slab := range sortedSlabs(slabs) {
		if income.LessThanOrEqual(slab.Min) {
			break
		}
		upper := income
		if slab.Max != nil && slab.Max.LessThan(income) {
			upper = *slab.Max
		}
		total = total.Add(money.Percent(slab.Rate, upper.Sub(slab.Min)))
	}
	return money.Round(total), nil
}

// TaxOrZero is Tax for callers whose base may legitimately be zero. The slab
// set must still exist.
func TaxOrZero(income decimal.Decimal, slabs []Slab) (decimal.Decimal, error) {
	if len(slabs) == 0 {
		return decimal.Zero, ErrNoApplicableSlabSet
	}
	if income.IsZero() {
		return decimal.Zero, nil
	}
	return Tax(income, slabs)
}

func sortedSlabs(slabs []Slab) []Slab {
	out := make([]Slab, len(slabs))
	copy(out, slabs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Min.LessThan(out[j].Min)
	})
	return out
}

// Validate checks the set is well keyed and that its slabs partition
// [0, infinity) without gaps or overlaps.
func (s SlabSet) Validate() error {
	if _, err := ParseRegime(string(s.Regime)); err != nil {
		return err
	}
	if !ValidFinancialYear(s.FinancialYear) {
		return ErrInvalidFinancialYear
	}
	return ValidateSlabs(s.Slabs)
}

func ValidateSlabs(slabs []Slab) error {
	if len(slabs) == 0 {
		return ErrInvalidSlabSet.With("at least one slab is required")
	}
	ordered := sortedSlabs(slabs)
	if !ordered[0].Min.IsZero() {
		return ErrInvalidSlabSet.With("first slab must start at 0")
	}
	hundred := decimal.NewFromInt(100)
	for i, slab := range ordered {
		if slab.Rate.IsNegative() || slab.Rate.GreaterThan(hundred) {
			return ErrInvalidSlabSet.With("slab %d rate must be between 0 and 100", i+1)
		}
		last := i == len(ordered)-1
		if slab.Max == nil {
			if !last {
				return ErrInvalidSlabSet.With("only the last slab may be open-ended")
			}
			continue
		}
		if last {
			return ErrInvalidSlabSet.With("last slab must be open-ended")
		}
		if !slab.Max.GreaterThan(slab.Min) {
			return ErrInvalidSlabSet.With("slab %d max must be greater than min", i+1)
		}
		if !ordered[i+1].Min.Equal(*slab.Max) {
			return ErrInvalidSlabSet.With("slab %d must start where slab %d ends", i+2, i+1)
		}
	}
	return nil
}
