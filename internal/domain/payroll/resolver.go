package payroll

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
)

// Resolve merges a profile with its optional template. Without a template the
// profile's own basic/hra/allowances are used as-is.
func Resolve(profile Profile, template *Template) ResolvedStructure {
	basic := money.Round(profile.SalaryStructure.Basic)
	if template == nil {
		hra := money.Round(profile.SalaryStructure.HRA)
		allowances := money.Round(profile.SalaryStructure.Allowances)
		return ResolvedStructure{
			Basic:         basic,
			HRA:           hra,
			Allowances:    allowances,
			ExtraEarnings: []ResolvedComponent{},
			Deductions:    []ResolvedComponent{},
			GrossSalary:   money.Sum(basic, hra, allowances),
		}
	}

	out := ResolvedStructure{
		Basic:         basic,
		ExtraEarnings: resolveComponents(template.Earnings, basic),
		Deductions:    resolveComponents(template.Deductions, basic),
	}
	splitEarnings(&out)
	return out
}

func resolveComponents(components []Component, basic decimal.Decimal) []ResolvedComponent {
	out := make([]ResolvedComponent, 0, len(components))
	for _, c := range components {
		out = append(out, ResolvedComponent{Name: c.Name, Amount: c.Calculation.Resolve(basic), calc: c.Calculation})
	}
	return out
}

// splitEarnings derives hra, allowances and gross from the extra earnings.
func splitEarnings(s *ResolvedStructure) {
	hra, allowances := decimal.Zero, decimal.Zero
	for _, e := range s.ExtraEarnings {
		if strings.EqualFold(e.Name, ComponentHRA) {
			hra = hra.Add(e.Amount)
			continue
		}
		allowances = allowances.Add(e.Amount)
	}
	s.HRA = hra
	s.Allowances = allowances
	s.GrossSalary = money.Sum(s.Basic, hra, allowances)
}

// Resolver loads the profile and template referenced by an employee code.
type Resolver struct {
	profiles  ProfileSource
	templates TemplateSource
}

func NewResolver(profiles ProfileSource, templates TemplateSource) *Resolver {
	return &Resolver{profiles: profiles, templates: templates}
}

func (r *Resolver) ResolveFor(ctx context.Context, employeeCode string) (ResolvedStructure, Profile, error) {
	profile, err := r.profiles.Profile(ctx, employeeCode)
	if err != nil {
		return ResolvedStructure{}, Profile{}, err
	}
	if profile.TemplateID == nil || *profile.TemplateID == "" {
		return Resolve(profile, nil), profile, nil
	}
	template, err := r.templates.Template(ctx, *profile.TemplateID)
	if err != nil {
		return ResolvedStructure{}, Profile{}, err
	}
	return Resolve(profile, &template), profile, nil
}
