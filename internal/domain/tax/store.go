package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) UpsertSlabSet(ctx context.Context, set SlabSet) (SlabSet, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO tax_slab_sets (regime, financial_year, slabs, updated_at)
    VALUES ($1, $2, $3, now())
    ON CONFLICT (regime, financial_year)
    DO UPDATE SET slabs = EXCLUDED.slabs, updated_at = now()
    RETURNING updated_at
  `, set.Regime, set.FinancialYear, set.Slabs).Scan(&set.UpdatedAt)
	if err != nil {
		return SlabSet{}, fmt.Errorf("upsert slab set: %w", err)
	}
	return set, nil
}

func (s *Store) GetSlabSet(ctx context.Context, regime Regime, financialYear string) (SlabSet, error) {
	var set SlabSet
	err := s.DB.QueryRow(ctx, `
    SELECT regime, financial_year, slabs, updated_at
    FROM tax_slab_sets
    WHERE regime = $1 AND financial_year = $2
  `, regime, financialYear).Scan(&set.Regime, &set.FinancialYear, &set.Slabs, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SlabSet{}, ErrSlabSetNotFound
	}
	if err != nil {
		return SlabSet{}, fmt.Errorf("get slab set: %w", err)
	}
	return set, nil
}

func (s *Store) ListSlabSets(ctx context.Context) ([]SlabSet, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT regime, financial_year, slabs, updated_at
    FROM tax_slab_sets
    ORDER BY financial_year DESC, regime
  `)
	if err != nil {
		return nil, fmt.Errorf("list slab sets: %w", err)
	}
	defer rows.Close()

	out := []SlabSet{}
	for rows.Next() {
		var set SlabSet
		if err := rows.Scan(&set.Regime, &set.FinancialYear, &set.Slabs, &set.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSlabSet(ctx context.Context, regime Regime, financialYear string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM tax_slab_sets WHERE regime = $1 AND financial_year = $2`, regime, financialYear)
	if err != nil {
		return fmt.Errorf("delete slab set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlabSetNotFound
	}
	return nil
}

func (s *Store) UpsertDeclaration(ctx context.Context, d Declaration) (Declaration, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO tax_declarations (employee_id, financial_year, selected_regime, total_income, investments,
                                  taxable_income, calculated_tax, proof_files)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (employee_id, financial_year)
    DO UPDATE SET selected_regime = EXCLUDED.selected_regime,
                  total_income = EXCLUDED.total_income,
                  investments = EXCLUDED.investments,
                  taxable_income = EXCLUDED.taxable_income,
                  calculated_tax = EXCLUDED.calculated_tax,
                  proof_files = EXCLUDED.proof_files,
                  updated_at = now()
    RETURNING id::text, created_at, updated_at
  `, d.EmployeeID, d.FinancialYear, d.SelectedRegime, d.TotalIncome, d.Investments,
		d.TaxableIncome, d.CalculatedTax, d.ProofFiles).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Declaration{}, fmt.Errorf("upsert declaration: %w", err)
	}
	return d, nil
}

func (s *Store) GetDeclaration(ctx context.Context, employeeID, financialYear string) (Declaration, error) {
	var d Declaration
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, employee_id, financial_year, selected_regime, total_income, investments,
           taxable_income, calculated_tax, proof_files, created_at, updated_at
    FROM tax_declarations
    WHERE employee_id = $1 AND financial_year = $2
  `, employeeID, financialYear).Scan(&d.ID, &d.EmployeeID, &d.FinancialYear, &d.SelectedRegime,
		&d.TotalIncome, &d.Investments, &d.TaxableIncome, &d.CalculatedTax, &d.ProofFiles, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Declaration{}, ErrDeclarationNotFound
	}
	if err != nil {
		return Declaration{}, fmt.Errorf("get declaration: %w", err)
	}
	return d, nil
}
