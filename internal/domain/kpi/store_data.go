package kpi

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/scope"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var assignmentColumns = scope.Columns{
	EmployeeID:         "a.employee_id",
	SectionID:          "a.section_id",
	DepartmentID:       "a.department_id",
	SectionDepartment:  "s.department_id",
	EmployeeSection:    "e.section_id",
	EmployeeDepartment: "e.department_id",
}

// ListKPIs restricts visibility through the KPI's assignments: a caller sees
// a KPI iff at least one of its assignments is visible to them.
func (s *Store) ListKPIs(ctx context.Context, user auth.UserContext, limit, offset int) ([]KPI, error) {
	query := `
    SELECT DISTINCT k.id, k.name, k.description, k.unit, k.formula_id, k.actual_value, k.created_at, k.updated_at
    FROM kpis k
    JOIN assignments a ON a.kpi_id = k.id AND a.deleted_at IS NULL
    LEFT JOIN employees e ON e.id = a.employee_id
    LEFT JOIN sections s ON s.id = a.section_id
    WHERE k.deleted_at IS NULL`
	args := []any{}
	query, args = scope.Filter(user, assignmentColumns, query, args)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY k.name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kpis []KPI
	for rows.Next() {
		var k KPI
		if err := rows.Scan(&k.ID, &k.Name, &k.Description, &k.Unit, &k.FormulaID, &k.ActualValue, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}

func (s *Store) GetKPI(ctx context.Context, kpiID string) (KPI, error) {
	var k KPI
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, description, unit, formula_id, actual_value, created_at, updated_at
    FROM kpis
    WHERE id = $1 AND deleted_at IS NULL
  `, kpiID).Scan(&k.ID, &k.Name, &k.Description, &k.Unit, &k.FormulaID, &k.ActualValue, &k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return KPI{}, ErrKPINotFound
	}
	if err != nil {
		return KPI{}, err
	}
	return k, nil
}

func (s *Store) ListAssignments(ctx context.Context, user auth.UserContext, kpiID string, limit, offset int) ([]Assignment, error) {
	query := `
    SELECT a.id, a.kpi_id, a.employee_id, a.section_id, a.department_id, a.team_id,
           a.target_value, a.status, a.created_at, a.deleted_at
    FROM assignments a
    LEFT JOIN employees e ON e.id = a.employee_id
    LEFT JOIN sections s ON s.id = a.section_id
    WHERE a.deleted_at IS NULL`
	args := []any{}
	if kpiID != "" {
		args = append(args, kpiID)
		query += fmt.Sprintf(" AND a.kpi_id = $%d", len(args))
	}
	query, args = scope.Filter(user, assignmentColumns, query, args)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.KPIID, &a.EmployeeID, &a.SectionID, &a.DepartmentID, &a.TeamID,
			&a.TargetValue, &a.Status, &a.CreatedAt, &a.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (Assignment, error) {
	var a Assignment
	err := s.DB.QueryRow(ctx, `
    SELECT id, kpi_id, employee_id, section_id, department_id, team_id, target_value, status, created_at, deleted_at
    FROM assignments
    WHERE id = $1 AND deleted_at IS NULL
  `, assignmentID).Scan(&a.ID, &a.KPIID, &a.EmployeeID, &a.SectionID, &a.DepartmentID, &a.TeamID,
		&a.TargetValue, &a.Status, &a.CreatedAt, &a.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrAssignmentNotFound
	}
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (s *Store) CreateValueRecord(ctx context.Context, assignmentID string, value float64, submittedBy string) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO value_records (assignment_id, value, status, submitted_by)
    VALUES ($1,$2,'PENDING',$3)
    RETURNING id
  `, assignmentID, value, submittedBy).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ResolveValueRecord(ctx context.Context, valueID, status string) (string, string, error) {
	var kpiID string
	var employeeID *string
	err := s.DB.QueryRow(ctx, `
    UPDATE value_records v
    SET status = $2, updated_at = now()
    FROM assignments a
    WHERE v.id = $1 AND v.status = 'PENDING' AND a.id = v.assignment_id
    RETURNING a.kpi_id, a.employee_id
  `, valueID, status).Scan(&kpiID, &employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the record does not exist or it was already resolved;
		// disambiguate for the caller.
		var exists bool
		if checkErr := s.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM value_records WHERE id = $1)", valueID,
		).Scan(&exists); checkErr != nil {
			return "", "", checkErr
		}
		if exists {
			return "", "", ErrValueNotPending
		}
		return "", "", ErrValueNotFound
	}
	if err != nil {
		return "", "", err
	}
	if employeeID == nil {
		return kpiID, "", nil
	}
	return kpiID, *employeeID, nil
}
