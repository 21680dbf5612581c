// Package orgdir is the read-only organizational directory. It decides who
// gets notified, never whether a transition is legal.
package orgdir

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("directory entry not found")

type API interface {
	SectionLeaderUserID(ctx context.Context, sectionID string) (string, error)
	DepartmentManagerUserID(ctx context.Context, departmentID string) (string, error)
	EmployeeUserID(ctx context.Context, employeeID string) (string, error)
	EmployeeOrg(ctx context.Context, employeeID string) (sectionID, departmentID string, err error)
	ManagerUserIDs(ctx context.Context) ([]string, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) SectionLeaderUserID(ctx context.Context, sectionID string) (string, error) {
	return s.lookupOne(ctx, "SELECT leader_user_id FROM sections WHERE id = $1", sectionID)
}

func (s *Store) DepartmentManagerUserID(ctx context.Context, departmentID string) (string, error) {
	return s.lookupOne(ctx, "SELECT manager_user_id FROM departments WHERE id = $1", departmentID)
}

func (s *Store) EmployeeUserID(ctx context.Context, employeeID string) (string, error) {
	return s.lookupOne(ctx, "SELECT user_id FROM employees WHERE id = $1", employeeID)
}

func (s *Store) EmployeeOrg(ctx context.Context, employeeID string) (string, string, error) {
	var sectionID, departmentID *string
	err := s.DB.QueryRow(ctx,
		"SELECT section_id, department_id FROM employees WHERE id = $1", employeeID,
	).Scan(&sectionID, &departmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return strOrEmpty(sectionID), strOrEmpty(departmentID), nil
}

func (s *Store) ManagerUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT user_id FROM company_managers ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) lookupOne(ctx context.Context, query, id string) (string, error) {
	var value *string
	err := s.DB.QueryRow(ctx, query, id).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return strOrEmpty(value), nil
}

func strOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
