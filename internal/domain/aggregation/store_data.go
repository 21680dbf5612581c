package aggregation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kpim/internal/domain/auth"
	"kpim/internal/domain/scope"
)

var ErrKPINotFound = errors.New("kpi not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var rollupColumns = scope.Columns{
	EmployeeID:         "a.employee_id",
	SectionID:          "a.section_id",
	DepartmentID:       "a.department_id",
	SectionDepartment:  "s.department_id",
	EmployeeSection:    "e.section_id",
	EmployeeDepartment: "e.department_id",
}

func (s *Store) LoadInput(ctx context.Context, kpiID string) (Input, error) {
	return s.loadInput(ctx, kpiID, nil)
}

func (s *Store) LoadInputScoped(ctx context.Context, kpiID string, user auth.UserContext) (Input, error) {
	return s.loadInput(ctx, kpiID, &user)
}

func (s *Store) loadInput(ctx context.Context, kpiID string, user *auth.UserContext) (Input, error) {
	in := Input{KPIID: kpiID}

	var expression *string
	err := s.DB.QueryRow(ctx, `
    SELECT f.expression
    FROM kpis k
    LEFT JOIN formulas f ON f.id = k.formula_id
    WHERE k.id = $1 AND k.deleted_at IS NULL
  `, kpiID).Scan(&expression)
	if errors.Is(err, pgx.ErrNoRows) {
		return Input{}, ErrKPINotFound
	}
	if err != nil {
		return Input{}, err
	}
	if expression != nil {
		in.Expression = *expression
	}

	if err := s.loadEmployees(ctx, &in, user); err != nil {
		return Input{}, err
	}
	if err := s.loadSections(ctx, &in, user); err != nil {
		return Input{}, err
	}
	if err := s.loadDepartments(ctx, &in, user); err != nil {
		return Input{}, err
	}
	return in, nil
}

// loadEmployees picks the most recent APPROVED value per assignment. Ties on
// updated_at break on record id so the selection is deterministic.
func (s *Store) loadEmployees(ctx context.Context, in *Input, user *auth.UserContext) error {
	query := `
    SELECT a.id, a.employee_id, e.section_id, a.target_value, v.value
    FROM assignments a
    JOIN employees e ON e.id = a.employee_id
    JOIN sections s ON s.id = e.section_id
    LEFT JOIN LATERAL (
      SELECT value
      FROM value_records
      WHERE assignment_id = a.id AND status = 'APPROVED'
      ORDER BY updated_at DESC, id DESC
      LIMIT 1
    ) v ON true
    WHERE a.kpi_id = $1 AND a.employee_id IS NOT NULL AND a.deleted_at IS NULL`
	args := []any{in.KPIID}
	if user != nil {
		query, args = scope.Filter(*user, rollupColumns, query, args)
	}
	query += " ORDER BY a.id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ev EmployeeValue
		if err := rows.Scan(&ev.AssignmentID, &ev.EmployeeID, &ev.SectionID, &ev.Target, &ev.Value); err != nil {
			return err
		}
		in.Employees = append(in.Employees, ev)
	}
	return rows.Err()
}

func (s *Store) loadSections(ctx context.Context, in *Input, user *auth.UserContext) error {
	query := `
    SELECT a.id, a.section_id, s.department_id, a.target_value
    FROM assignments a
    JOIN sections s ON s.id = a.section_id
    WHERE a.kpi_id = $1 AND a.section_id IS NOT NULL AND a.deleted_at IS NULL`
	args := []any{in.KPIID}
	if user != nil {
		query, args = scope.Filter(*user, scope.Columns{
			EmployeeID:         "a.employee_id",
			SectionID:          "a.section_id",
			DepartmentID:       "s.department_id",
			SectionDepartment:  "s.department_id",
			EmployeeSection:    "a.section_id",
			EmployeeDepartment: "s.department_id",
		}, query, args)
	}
	query += " ORDER BY a.id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sa SectionAssignment
		if err := rows.Scan(&sa.AssignmentID, &sa.SectionID, &sa.DepartmentID, &sa.Target); err != nil {
			return err
		}
		in.Sections = append(in.Sections, sa)
	}
	return rows.Err()
}

func (s *Store) loadDepartments(ctx context.Context, in *Input, user *auth.UserContext) error {
	query := `
    SELECT a.id, a.department_id, a.target_value
    FROM assignments a
    WHERE a.kpi_id = $1 AND a.department_id IS NOT NULL AND a.deleted_at IS NULL`
	args := []any{in.KPIID}
	if user != nil {
		query, args = scope.Filter(*user, scope.Columns{
			EmployeeID:         "a.employee_id",
			SectionID:          "a.section_id",
			DepartmentID:       "a.department_id",
			SectionDepartment:  "a.department_id",
			EmployeeSection:    "a.section_id",
			EmployeeDepartment: "a.department_id",
		}, query, args)
	}
	query += " ORDER BY a.id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var da DepartmentAssignment
		if err := rows.Scan(&da.AssignmentID, &da.DepartmentID, &da.Target); err != nil {
			return err
		}
		in.Departments = append(in.Departments, da)
	}
	return rows.Err()
}

// UpdateActualValue writes the cached actual onto the KPI row and refreshes
// the snapshot on the KPI's open review records. Completed records keep the
// value they were closed with.
func (s *Store) UpdateActualValue(ctx context.Context, kpiID string, actual float64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE kpis SET actual_value = $2, updated_at = now() WHERE id = $1
  `, kpiID, actual)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKPINotFound
	}
	if _, err := tx.Exec(ctx, `
    UPDATE review_records
    SET actual_value = $2, updated_at = now()
    WHERE kpi_id = $1 AND status <> 'COMPLETED'
  `, kpiID, actual); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListKPIIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id FROM kpis WHERE deleted_at IS NULL ORDER BY id")
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
