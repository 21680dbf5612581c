package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"kpim/internal/domain/auth"
)

// Seed fills the externally managed permission table with sane defaults so a
// fresh database is usable. Existing rows are left alone.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	for role, perms := range auth.RolePermissionDefaults {
		for _, perm := range perms {
			if _, err := pool.Exec(ctx, `
        INSERT INTO role_permissions (role, permission)
        VALUES ($1,$2)
        ON CONFLICT (role, permission) DO NOTHING
      `, string(role), perm); err != nil {
				return err
			}
		}
	}
	return nil
}
