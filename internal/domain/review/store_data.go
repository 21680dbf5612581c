package review

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

var listColumns = scope.Columns{
	EmployeeID:         "rr.employee_id",
	SectionID:          "a.section_id",
	DepartmentID:       "a.department_id",
	SectionDepartment:  "s.department_id",
	EmployeeSection:    "e.section_id",
	EmployeeDepartment: "e.department_id",
}

const recordColumns = `rr.id, rr.kpi_id, rr.employee_id, rr.department_id, rr.section_id, rr.assignment_id,
    rr.cycle, rr.target_value, rr.actual_value,
    rr.self_score, rr.self_comment, rr.section_score, rr.section_comment,
    rr.department_score, rr.department_comment, rr.manager_score, rr.manager_comment,
    rr.employee_feedback, rr.rejection_reason, rr.status, rr.created_at, rr.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.KPIID, &rec.EmployeeID, &rec.DepartmentID, &rec.SectionID, &rec.AssignmentID,
		&rec.Cycle, &rec.TargetValue, &rec.ActualValue,
		&rec.SelfScore, &rec.SelfComment, &rec.SectionScore, &rec.SectionComment,
		&rec.DepartmentScore, &rec.DepartmentComment, &rec.ManagerScore, &rec.ManagerComment,
		&rec.EmployeeFeedback, &rec.RejectionReason, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

func (s *Store) Get(ctx context.Context, recordID string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM review_records rr WHERE rr.id = $1", recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetScoped hides records outside the caller's visibility as not-found rather
// than leaking their existence.
func (s *Store) GetScoped(ctx context.Context, user auth.UserContext, recordID string) (Record, error) {
	query := `
    SELECT ` + recordColumns + `
    FROM review_records rr
    LEFT JOIN assignments a ON a.id = rr.assignment_id
    LEFT JOIN employees e ON e.id = rr.employee_id
    LEFT JOIN sections s ON s.id = a.section_id
    WHERE rr.id = $1`
	args := []any{recordID}
	query, args = scope.Filter(user, listColumns, query, args)

	rec, err := scanRecord(s.DB.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, user auth.UserContext, cycle, kpiID string, limit, offset int) ([]Record, error) {
	query := `
    SELECT ` + recordColumns + `
    FROM review_records rr
    LEFT JOIN assignments a ON a.id = rr.assignment_id
    LEFT JOIN employees e ON e.id = rr.employee_id
    LEFT JOIN sections s ON s.id = a.section_id
    WHERE 1=1`
	args := []any{}
	if cycle != "" {
		args = append(args, cycle)
		query += fmt.Sprintf(" AND rr.cycle = $%d", len(args))
	}
	if kpiID != "" {
		args = append(args, kpiID)
		query += fmt.Sprintf(" AND rr.kpi_id = $%d", len(args))
	}
	query, args = scope.Filter(user, listColumns, query, args)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY rr.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) ListMine(ctx context.Context, employeeID, cycle string) ([]Record, error) {
	return s.listOwned(ctx, `
    SELECT `+recordColumns+`
    FROM review_records rr
    WHERE rr.employee_id = $1 AND rr.cycle = $2
    ORDER BY rr.created_at DESC
  `, employeeID, cycle)
}

// ListForSection returns the records attributed to the section itself for
// the cycle, never its employees' records.
func (s *Store) ListForSection(ctx context.Context, sectionID, cycle string) ([]Record, error) {
	return s.listOwned(ctx, `
    SELECT `+recordColumns+`
    FROM review_records rr
    WHERE rr.section_id = $1 AND rr.employee_id IS NULL AND rr.cycle = $2
    ORDER BY rr.created_at DESC
  `, sectionID, cycle)
}

func (s *Store) ListForDepartment(ctx context.Context, departmentID, cycle string) ([]Record, error) {
	return s.listOwned(ctx, `
    SELECT `+recordColumns+`
    FROM review_records rr
    WHERE rr.department_id = $1 AND rr.employee_id IS NULL AND rr.section_id IS NULL AND rr.cycle = $2
    ORDER BY rr.created_at DESC
  `, departmentID, cycle)
}

func (s *Store) listOwned(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// EnsureForEmployee creates missing records for the cycle. The unique key on
// (assignment_id, cycle) plus DO NOTHING makes two concurrent calls converge
// on a single row instead of duplicating it. The KPI's cached actual_value is
// snapshotted at creation; recompute refreshes it on open records.
func (s *Store) EnsureForEmployee(ctx context.Context, employeeID, cycle string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO review_records (kpi_id, employee_id, department_id, section_id, assignment_id, cycle, target_value, actual_value, status)
    SELECT a.kpi_id, a.employee_id, NULL::uuid, NULL::uuid, a.id, $2, a.target_value, k.actual_value, 'PENDING'
    FROM assignments a
    JOIN kpis k ON k.id = a.kpi_id
    WHERE a.employee_id = $1 AND a.deleted_at IS NULL AND a.status = 'APPROVED'
    ON CONFLICT (assignment_id, cycle) DO NOTHING
  `, employeeID, cycle)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// EnsureForSection creates records for assignments targeting the section
// itself. The record is attributed to the section, with no employee, so the
// self-approval guard can recognize it; the owning department is resolved
// from the section for scoping.
func (s *Store) EnsureForSection(ctx context.Context, sectionID, cycle string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO review_records (kpi_id, employee_id, department_id, section_id, assignment_id, cycle, target_value, actual_value, status)
    SELECT a.kpi_id, NULL::uuid, sec.department_id, a.section_id, a.id, $2, a.target_value, k.actual_value, 'PENDING'
    FROM assignments a
    JOIN sections sec ON sec.id = a.section_id
    JOIN kpis k ON k.id = a.kpi_id
    WHERE a.section_id = $1 AND a.deleted_at IS NULL AND a.status = 'APPROVED'
    ON CONFLICT (assignment_id, cycle) DO NOTHING
  `, sectionID, cycle)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// EnsureForDepartment creates records for assignments targeting the
// department itself.
func (s *Store) EnsureForDepartment(ctx context.Context, departmentID, cycle string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO review_records (kpi_id, employee_id, department_id, section_id, assignment_id, cycle, target_value, actual_value, status)
    SELECT a.kpi_id, NULL::uuid, a.department_id, NULL::uuid, a.id, $2, a.target_value, k.actual_value, 'PENDING'
    FROM assignments a
    JOIN kpis k ON k.id = a.kpi_id
    WHERE a.department_id = $1 AND a.deleted_at IS NULL AND a.status = 'APPROVED'
    ON CONFLICT (assignment_id, cycle) DO NOTHING
  `, departmentID, cycle)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Transition locks the row, applies the mutator, then writes the record and
// its history entry in the same transaction. Any failure, including the
// history insert, rolls the whole transition back.
func (s *Store) Transition(ctx context.Context, recordID, actorID string, mutate Mutator) (Record, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM review_records rr WHERE rr.id = $1 FOR UPDATE", recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	payload, err := mutate(&rec)
	if err != nil {
		return Record{}, err
	}

	if err := tx.QueryRow(ctx, `
    UPDATE review_records
    SET status = $2,
        self_score = $3, self_comment = $4,
        section_score = $5, section_comment = $6,
        department_score = $7, department_comment = $8,
        manager_score = $9, manager_comment = $10,
        employee_feedback = $11, rejection_reason = $12,
        updated_at = now()
    WHERE id = $1
    RETURNING updated_at
  `, rec.ID, rec.Status,
		rec.SelfScore, rec.SelfComment,
		rec.SectionScore, rec.SectionComment,
		rec.DepartmentScore, rec.DepartmentComment,
		rec.ManagerScore, rec.ManagerComment,
		rec.EmployeeFeedback, rec.RejectionReason,
	).Scan(&rec.UpdatedAt); err != nil {
		return Record{}, err
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO review_history (kpi_id, employee_id, cycle, status, score, comment, rejection_reason, reviewed_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, rec.KPIID, rec.EmployeeID, rec.Cycle, rec.Status,
		payload.Score, payload.Comment, payload.RejectionReason, actorID,
	); err != nil {
		return Record{}, fmt.Errorf("append review history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) History(ctx context.Context, kpiID, employeeID, cycle string) ([]HistoryEntry, error) {
	return s.history(ctx, `
    SELECT id, kpi_id, employee_id, cycle, status, score, comment, rejection_reason, reviewed_by, created_at
    FROM review_history
    WHERE kpi_id = $1 AND cycle = $3
      AND ($2 = '' OR employee_id = $2::uuid)
    ORDER BY created_at, id
  `, kpiID, employeeID, cycle)
}

func (s *Store) HistoryForRecord(ctx context.Context, recordID string) ([]HistoryEntry, error) {
	rec, err := s.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, `
    SELECT id, kpi_id, employee_id, cycle, status, score, comment, rejection_reason, reviewed_by, created_at
    FROM review_history
    WHERE kpi_id = $1 AND cycle = $2
      AND (employee_id = $3 OR ($3::uuid IS NULL AND employee_id IS NULL))
    ORDER BY created_at, id
  `, rec.KPIID, rec.Cycle, rec.EmployeeID)
}

func (s *Store) history(ctx context.Context, query string, args ...any) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.KPIID, &entry.EmployeeID, &entry.Cycle, &entry.Status,
			&entry.Score, &entry.Comment, &entry.RejectionReason, &entry.ReviewedBy, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
