package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate() Template {
	return Template{
		ID:   "11111111-1111-1111-1111-111111111111",
		Name: "Standard",
		Earnings: []Component{
			{Name: "HRA", Calculation: Percentage{Rate: d("40")}},
			{Name: "Transport", Calculation: Fixed{Amount: d("1600")}},
		},
		Deductions: []Component{
			{Name: "Loan", Calculation: Fixed{Amount: d("500")}},
			{Name: "VPF", Calculation: Percentage{Rate: d("2")}},
		},
	}
}

func TestResolveWithoutTemplate(t *testing.T) {
	p := Profile{SalaryStructure: SalaryStructure{Basic: d("30000"), HRA: d("12000"), Allowances: d("8000.005")}}

	s := Resolve(p, nil)
	assert.True(t, s.Allowances.Equal(d("8000.01")), "got %s", s.Allowances)
	assert.True(t, s.GrossSalary.Equal(d("50000.01")), "got %s", s.GrossSalary)
	assert.Empty(t, s.ExtraEarnings)
	assert.Empty(t, s.Deductions)
}

func TestResolveWithTemplate(t *testing.T) {
	tpl := sampleTemplate()
	p := Profile{SalaryStructure: SalaryStructure{Basic: d("30000"), HRA: d("99999")}}

	s := Resolve(p, &tpl)
	assert.True(t, s.HRA.Equal(d("12000")), "template HRA replaces the profile value")
	assert.True(t, s.Allowances.Equal(d("1600")))
	assert.True(t, s.GrossSalary.Equal(d("43600")))
	require.Len(t, s.Deductions, 2)
	assert.True(t, s.Deductions[0].Amount.Equal(d("500")))
	assert.True(t, s.Deductions[1].Amount.Equal(d("600")))
}

func TestResolveTemplateFixedAndPercentageUnderBasicChange(t *testing.T) {
	tpl := sampleTemplate()
	low := Resolve(Profile{SalaryStructure: SalaryStructure{Basic: d("30000")}}, &tpl)
	high := Resolve(Profile{SalaryStructure: SalaryStructure{Basic: d("60000")}}, &tpl)

	assert.True(t, low.ExtraEarnings[1].Amount.Equal(high.ExtraEarnings[1].Amount), "fixed transport must not move")
	assert.True(t, high.ExtraEarnings[0].Amount.Equal(low.ExtraEarnings[0].Amount.Mul(d("2"))), "percentage HRA must scale")
}

func TestResolverResolveFor(t *testing.T) {
	tpl := sampleTemplate()
	profiles := fakeProfiles{
		"E1": {EmployeeCode: "E1", SalaryStructure: SalaryStructure{Basic: d("30000")}, TemplateID: &tpl.ID},
		"E2": {EmployeeCode: "E2", SalaryStructure: SalaryStructure{Basic: d("1000")}, TemplateID: strPtr("22222222-2222-2222-2222-222222222222")},
	}
	r := NewResolver(profiles, fakeTemplates{tpl.ID: tpl})
	ctx := context.Background()

	s, p, err := r.ResolveFor(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "E1", p.EmployeeCode)
	assert.True(t, s.GrossSalary.Equal(d("43600")))

	_, _, err = r.ResolveFor(ctx, "E2")
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	_, _, err = r.ResolveFor(ctx, "missing")
	assert.True(t, errors.Is(err, ErrUnresolvedProfile))
}

func strPtr(s string) *string {
	return &s
}
