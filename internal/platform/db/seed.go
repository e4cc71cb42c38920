package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrm-payroll/internal/domain/auth"
)

// Seed writes the default role grants when role_permissions is empty. Grants
// edited afterwards are left alone.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		var existing int
		if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM role_permissions").Scan(&existing); err != nil {
			return fmt.Errorf("count role permissions: %w", err)
		}
		if existing > 0 {
			return nil
		}

		policies := auth.DefaultPolicies()
		for _, rp := range policies {
			_, err := tx.Exec(ctx, "INSERT INTO role_permissions (role, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING", rp.Role, rp.Permission)
			if err != nil {
				return fmt.Errorf("seed %s/%s: %w", rp.Role, rp.Permission, err)
			}
		}
		slog.Info("seeded role permissions", "count", len(policies))
		return nil
	})
}
