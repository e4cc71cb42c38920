package payroll

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
)

// Calculation is either Fixed or Percentage. The interface is sealed.
type Calculation interface {
	Resolve(basic decimal.Decimal) decimal.Decimal
	calculationType() string
	value() decimal.Decimal
}

// Fixed contributes its amount regardless of basic.
type Fixed struct {
	Amount decimal.Decimal
}

func (f Fixed) Resolve(decimal.Decimal) decimal.Decimal {
	return money.Round(f.Amount)
}

func (Fixed) calculationType() string { return "Fixed" }

func (f Fixed) value() decimal.Decimal { return f.Amount }

// Percentage contributes Rate% of basic.
type Percentage struct {
	Rate decimal.Decimal
}

func (p Percentage) Resolve(basic decimal.Decimal) decimal.Decimal {
	return money.Round(money.Percent(p.Rate, basic))
}

func (Percentage) calculationType() string { return "Percentage" }

func (p Percentage) value() decimal.Decimal { return p.Rate }

type Component struct {
	Name        string
	Calculation Calculation
}

type componentJSON struct {
	Name            string          `json:"name"`
	CalculationType string          `json:"calculationType"`
	Value           decimal.Decimal `json:"value"`
}

func (c Component) MarshalJSON() ([]byte, error) {
	if c.Calculation == nil {
		return nil, ErrInvalidComponent.With("component %q has no calculation", c.Name)
	}
	return json.Marshal(componentJSON{
		Name:            c.Name,
		CalculationType: c.Calculation.calculationType(),
		Value:           c.Calculation.value(),
	})
}

func (c *Component) UnmarshalJSON(data []byte) error {
	var raw componentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidComponent.With("component: %v", err)
	}
	calc, err := NewCalculation(raw.CalculationType, raw.Value)
	if err != nil {
		return err
	}
	c.Name = strings.TrimSpace(raw.Name)
	c.Calculation = calc
	return nil
}

func NewCalculation(calculationType string, value decimal.Decimal) (Calculation, error) {
	if value.IsNegative() {
		return nil, ErrInvalidComponent.With("component value must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(calculationType)) {
	case "fixed":
		return Fixed{Amount: value}, nil
	case "percentage":
		return Percentage{Rate: value}, nil
	}
	return nil, ErrInvalidComponent.With("unknown calculationType %q", calculationType)
}

func validateComponents(kind string, components []Component) error {
	for i, c := range components {
		if c.Name == "" {
			return ErrInvalidComponent.With("%s component %d needs a name", kind, i+1)
		}
		if c.Calculation == nil {
			return ErrInvalidComponent.With("%s component %q needs a calculation", kind, c.Name)
		}
	}
	return nil
}
