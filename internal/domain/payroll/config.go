package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hrm-payroll/internal/domain/money"
	"hrm-payroll/internal/domain/tax"
	"hrm-payroll/internal/platform/cache"
)

const statutoryCacheTTL = 30 * time.Minute

// ConfigService maintains profiles, templates and statutory configs and
// serves them to the run engine.
type ConfigService struct {
	store          ConfigStore
	cache          cache.Cache
	periodsPerYear int
}

func NewConfigService(store ConfigStore, c cache.Cache, periodsPerYear int) *ConfigService {
	if c == nil {
		c = cache.Noop{}
	}
	if periodsPerYear <= 0 {
		periodsPerYear = 12
	}
	return &ConfigService{store: store, cache: c, periodsPerYear: periodsPerYear}
}

func (s *ConfigService) Profile(ctx context.Context, employeeCode string) (Profile, error) {
	return s.store.GetProfile(ctx, employeeCode)
}

func (s *ConfigService) SaveProfile(ctx context.Context, p Profile) (Profile, error) {
	p.EmployeeCode = strings.TrimSpace(p.EmployeeCode)
	if p.EmployeeCode == "" {
		return Profile{}, ErrInvalidProfile.With("employeeCode is required")
	}
	regime, err := tax.ParseRegime(string(p.TaxRegime))
	if err != nil {
		return Profile{}, err
	}
	p.TaxRegime = regime
	st := p.SalaryStructure
	if st.Basic.IsNegative() || st.HRA.IsNegative() || st.Allowances.IsNegative() {
		return Profile{}, ErrInvalidProfile.With("salary amounts must not be negative")
	}
	if p.TemplateID != nil {
		if *p.TemplateID == "" {
			p.TemplateID = nil
		} else if _, err := s.Template(ctx, *p.TemplateID); err != nil {
			return Profile{}, err
		}
	}
	return s.store.UpsertProfile(ctx, p)
}

// AnnualGross implements tax.IncomeSource.
func (s *ConfigService) AnnualGross(ctx context.Context, employeeCode string) (decimal.Decimal, error) {
	profile, err := s.store.GetProfile(ctx, employeeCode)
	if err != nil {
		return decimal.Zero, err
	}
	st := profile.SalaryStructure
	return money.Round(money.Sum(st.Basic, st.HRA, st.Allowances).Mul(decimal.NewFromInt(int64(s.periodsPerYear)))), nil
}

func (s *ConfigService) Template(ctx context.Context, id string) (Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Template{}, ErrTemplateNotFound
	}
	return s.store.GetTemplate(ctx, id)
}

func (s *ConfigService) ListTemplates(ctx context.Context) ([]Template, error) {
	return s.store.ListTemplates(ctx)
}

func (s *ConfigService) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	if err := validateTemplate(t); err != nil {
		return Template{}, err
	}
	t.ID = uuid.NewString()
	return s.store.CreateTemplate(ctx, t)
}

func (s *ConfigService) UpdateTemplate(ctx context.Context, t Template) (Template, error) {
	if _, err := uuid.Parse(t.ID); err != nil {
		return Template{}, ErrTemplateNotFound
	}
	if err := validateTemplate(t); err != nil {
		return Template{}, err
	}
	return s.store.UpdateTemplate(ctx, t)
}

func validateTemplate(t Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidComponent.With("template name is required")
	}
	if err := validateComponents("earning", t.Earnings); err != nil {
		return err
	}
	return validateComponents("deduction", t.Deductions)
}

func statutoryCacheKey(country, state string) string {
	return fmt.Sprintf("statutory:%s:%s", country, state)
}

func normalizeJurisdiction(country, state string) (string, string) {
	return strings.ToUpper(strings.TrimSpace(country)), strings.ToUpper(strings.TrimSpace(state))
}

// StatutoryConfig implements StatutorySource. Inactive configs are treated
// as missing.
func (s *ConfigService) StatutoryConfig(ctx context.Context, country, state string) (StatutoryConfig, error) {
	country, state = normalizeJurisdiction(country, state)
	var cfg StatutoryConfig
	err := s.cache.Load(ctx, statutoryCacheKey(country, state), statutoryCacheTTL, &cfg, func(ctx context.Context) (any, error) {
		return s.store.GetStatutoryConfig(ctx, country, state)
	})
	if err != nil {
		return StatutoryConfig{}, err
	}
	if !cfg.Active {
		return StatutoryConfig{}, ErrUnknownJurisdiction.With("no active statutory config for %s/%s", country, state)
	}
	return cfg, nil
}

func (s *ConfigService) GetStatutoryConfig(ctx context.Context, country, state string) (StatutoryConfig, error) {
	country, state = normalizeJurisdiction(country, state)
	return s.store.GetStatutoryConfig(ctx, country, state)
}

func (s *ConfigService) ListStatutoryConfigs(ctx context.Context) ([]StatutoryConfig, error) {
	return s.store.ListStatutoryConfigs(ctx)
}

func (s *ConfigService) SaveStatutoryConfig(ctx context.Context, cfg StatutoryConfig) (StatutoryConfig, error) {
	cfg.Country, cfg.State = normalizeJurisdiction(cfg.Country, cfg.State)
	if cfg.Country == "" || cfg.State == "" {
		return StatutoryConfig{}, ErrInvalidConfig.With("country and state are required")
	}
	hundred := decimal.NewFromInt(100)
	for name, pct := range map[string]decimal.Decimal{"pfPercentage": cfg.PFPercentage, "esiPercentage": cfg.ESIPercentage} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return StatutoryConfig{}, ErrInvalidConfig.With("%s must be between 0 and 100", name)
		}
	}
	if cfg.ProfessionalTax.IsNegative() {
		return StatutoryConfig{}, ErrInvalidConfig.With("professionalTax must not be negative")
	}
	if cfg.PFContributionCap != nil && cfg.PFContributionCap.IsNegative() {
		return StatutoryConfig{}, ErrInvalidConfig.With("pfContributionCap must not be negative")
	}
	if cfg.ESIGrossCeiling != nil && cfg.ESIGrossCeiling.IsNegative() {
		return StatutoryConfig{}, ErrInvalidConfig.With("esiGrossCeiling must not be negative")
	}

	saved, err := s.store.UpsertStatutoryConfig(ctx, cfg)
	if err != nil {
		return StatutoryConfig{}, err
	}
	if err := s.cache.Invalidate(ctx, statutoryCacheKey(cfg.Country, cfg.State)); err != nil {
		slog.WarnContext(ctx, "statutory cache invalidation failed", "country", cfg.Country, "state", cfg.State, "err", err)
	}
	return saved, nil
}
