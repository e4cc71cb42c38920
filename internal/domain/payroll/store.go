package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrm-payroll/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) GetProfile(ctx context.Context, employeeCode string) (Profile, error) {
	var p Profile
	err := s.DB.QueryRow(ctx, `
    SELECT p.employee_code, COALESCE(e.full_name, ''), p.basic, p.hra, p.allowances,
           p.bank_details, p.tax_regime, p.template_id::text, p.updated_at
    FROM payroll_profiles p
    LEFT JOIN employees e ON e.employee_code = p.employee_code
    WHERE p.employee_code = $1
  `, employeeCode).Scan(&p.EmployeeCode, &p.EmployeeName, &p.SalaryStructure.Basic, &p.SalaryStructure.HRA,
		&p.SalaryStructure.Allowances, &p.BankDetails, &p.TaxRegime, &p.TemplateID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrUnresolvedProfile.With("no payroll profile for employee %s", employeeCode)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	st := p.SalaryStructure
	_, err := s.DB.Exec(ctx, `
    INSERT INTO payroll_profiles (employee_code, basic, hra, allowances, bank_details, tax_regime, template_id, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7::uuid,now())
    ON CONFLICT (employee_code) DO UPDATE SET
      basic = EXCLUDED.basic,
      hra = EXCLUDED.hra,
      allowances = EXCLUDED.allowances,
      bank_details = EXCLUDED.bank_details,
      tax_regime = EXCLUDED.tax_regime,
      template_id = EXCLUDED.template_id,
      updated_at = now()
  `, p.EmployeeCode, st.Basic, st.HRA, st.Allowances, p.BankDetails, p.TaxRegime, p.TemplateID)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfile(ctx, p.EmployeeCode)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (Template, error) {
	var t Template
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, name, earnings, deductions, created_at, updated_at
    FROM salary_templates
    WHERE id = $1
  `, id).Scan(&t.ID, &t.Name, &t.Earnings, &t.Deductions, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrTemplateNotFound
	}
	if err != nil {
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, name, earnings, deductions, created_at, updated_at
    FROM salary_templates
    ORDER BY name
  `)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := []Template{}
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Earnings, &t.Deductions, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO salary_templates (id, name, earnings, deductions)
    VALUES ($1,$2,$3,$4)
    RETURNING created_at, updated_at
  `, t.ID, t.Name, nonNilComponents(t.Earnings), nonNilComponents(t.Deductions)).Scan(&t.CreatedAt, &t.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Template{}, ErrTemplateNameTaken.With("salary template %q already exists", t.Name)
	}
	if err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t Template) (Template, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE salary_templates
    SET name = $2, earnings = $3, deductions = $4, updated_at = now()
    WHERE id = $1
    RETURNING created_at, updated_at
  `, t.ID, t.Name, nonNilComponents(t.Earnings), nonNilComponents(t.Deductions)).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrTemplateNotFound
	}
	if db.IsUniqueViolation(err) {
		return Template{}, ErrTemplateNameTaken.With("salary template %q already exists", t.Name)
	}
	if err != nil {
		return Template{}, fmt.Errorf("update template: %w", err)
	}
	return t, nil
}

func nonNilComponents(c []Component) []Component {
	if c == nil {
		return []Component{}
	}
	return c
}

const statutoryColumns = `country, state, pf_percentage, esi_percentage, professional_tax,
           pf_contribution_cap, esi_gross_ceiling, active, updated_at`

func scanStatutory(row pgx.Row) (StatutoryConfig, error) {
	var c StatutoryConfig
	err := row.Scan(&c.Country, &c.State, &c.PFPercentage, &c.ESIPercentage, &c.ProfessionalTax,
		&c.PFContributionCap, &c.ESIGrossCeiling, &c.Active, &c.UpdatedAt)
	return c, err
}

func (s *Store) GetStatutoryConfig(ctx context.Context, country, state string) (StatutoryConfig, error) {
	c, err := scanStatutory(s.DB.QueryRow(ctx, `
    SELECT `+statutoryColumns+`
    FROM statutory_configs
    WHERE country = $1 AND state = $2
  `, country, state))
	if errors.Is(err, pgx.ErrNoRows) {
		return StatutoryConfig{}, ErrUnknownJurisdiction.With("no statutory config for %s/%s", country, state)
	}
	if err != nil {
		return StatutoryConfig{}, fmt.Errorf("get statutory config: %w", err)
	}
	return c, nil
}

func (s *Store) ListStatutoryConfigs(ctx context.Context) ([]StatutoryConfig, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+statutoryColumns+`
    FROM statutory_configs
    ORDER BY country, state
  `)
	if err != nil {
		return nil, fmt.Errorf("list statutory configs: %w", err)
	}
	defer rows.Close()

	out := []StatutoryConfig{}
	for rows.Next() {
		c, err := scanStatutory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertStatutoryConfig(ctx context.Context, c StatutoryConfig) (StatutoryConfig, error) {
	saved, err := scanStatutory(s.DB.QueryRow(ctx, `
    INSERT INTO statutory_configs (country, state, pf_percentage, esi_percentage, professional_tax,
                                   pf_contribution_cap, esi_gross_ceiling, active, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
    ON CONFLICT (country, state) DO UPDATE SET
      pf_percentage = EXCLUDED.pf_percentage,
      esi_percentage = EXCLUDED.esi_percentage,
      professional_tax = EXCLUDED.professional_tax,
      pf_contribution_cap = EXCLUDED.pf_contribution_cap,
      esi_gross_ceiling = EXCLUDED.esi_gross_ceiling,
      active = EXCLUDED.active,
      updated_at = now()
    RETURNING `+statutoryColumns,
		c.Country, c.State, c.PFPercentage, c.ESIPercentage, c.ProfessionalTax,
		c.PFContributionCap, c.ESIGrossCeiling, c.Active))
	if err != nil {
		return StatutoryConfig{}, fmt.Errorf("upsert statutory config: %w", err)
	}
	return saved, nil
}

// Attendance reads the attendance ledger owned by the attendance module.
func (s *Store) Attendance(ctx context.Context, employeeCode string, start, end time.Time) ([]AttendanceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_code, day, status
    FROM attendance_records
    WHERE employee_code = $1 AND day BETWEEN $2 AND $3
    ORDER BY day
  `, employeeCode, start, end)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []AttendanceRecord
	for rows.Next() {
		var r AttendanceRecord
		if err := rows.Scan(&r.EmployeeCode, &r.Day, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
