// Package money holds the rounding and percentage helpers shared by payroll
// and tax computations. Amounts are decimal.Decimal throughout.
package money

import "github.com/shopspring/decimal"

const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns rate% of base, unrounded.
func Percent(rate, base decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
