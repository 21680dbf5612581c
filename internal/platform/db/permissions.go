package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PermissionStore is a thin adapter over the externally managed permission
// table. The workflow only ever asks the yes/no question; it never edits the
// rule table.
type PermissionStore struct {
	DB *pgxpool.Pool
}

func NewPermissionStore(db *pgxpool.Pool) *PermissionStore {
	return &PermissionStore{DB: db}
}

func (s *PermissionStore) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM role_permissions WHERE role = $1 AND permission = $2
  `, role, permission).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
