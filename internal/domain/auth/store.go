package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) RolePermissions(ctx context.Context) ([]RolePermission, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT role, permission
    FROM role_permissions
    ORDER BY role, permission
  `)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RolePermission, error) {
		var rp RolePermission
		err := row.Scan(&rp.Role, &rp.Permission)
		return rp, err
	})
}
