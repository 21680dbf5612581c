package formula

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("formula not found")
	ErrUnknownKPI = errors.New("kpi for formula binding not found")
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context) ([]Formula, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, expression, kpi_id, created_at, updated_at
    FROM formulas
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var formulas []Formula
	for rows.Next() {
		var f Formula
		if err := rows.Scan(&f.ID, &f.Name, &f.Expression, &f.KPIID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		formulas = append(formulas, f)
	}
	return formulas, rows.Err()
}

func (s *Store) Get(ctx context.Context, formulaID string) (Formula, error) {
	var f Formula
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, expression, kpi_id, created_at, updated_at
    FROM formulas
    WHERE id = $1
  `, formulaID).Scan(&f.ID, &f.Name, &f.Expression, &f.KPIID, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Formula{}, ErrNotFound
	}
	if err != nil {
		return Formula{}, err
	}
	return f, nil
}

// Create writes the formula and mirrors the binding onto the KPI row in the
// same transaction, so the aggregation read path sees it immediately.
func (s *Store) Create(ctx context.Context, name, expression string, kpiID *string) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO formulas (name, expression, kpi_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, name, expression, kpiID).Scan(&id); err != nil {
		return "", err
	}
	if err := bindKPI(ctx, tx, id, kpiID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, formulaID, name, expression string, kpiID *string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE formulas
    SET name = $2, expression = $3, kpi_id = $4, updated_at = now()
    WHERE id = $1
  `, formulaID, name, expression, kpiID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := bindKPI(ctx, tx, formulaID, kpiID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Delete(ctx context.Context, formulaID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"UPDATE kpis SET formula_id = NULL, updated_at = now() WHERE formula_id = $1", formulaID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM formulas WHERE id = $1", formulaID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// bindKPI keeps kpis.formula_id and formulas.kpi_id mirrored: the previous
// binding is cleared first so a formula moving between KPIs never leaves a
// stale pointer behind.
func bindKPI(ctx context.Context, tx pgx.Tx, formulaID string, kpiID *string) error {
	if kpiID == nil {
		_, err := tx.Exec(ctx,
			"UPDATE kpis SET formula_id = NULL, updated_at = now() WHERE formula_id = $1", formulaID)
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE kpis SET formula_id = NULL, updated_at = now() WHERE formula_id = $1 AND id <> $2",
		formulaID, *kpiID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
    UPDATE kpis
    SET formula_id = $1, updated_at = now()
    WHERE id = $2 AND deleted_at IS NULL
  `, formulaID, *kpiID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownKPI
	}
	return nil
}

// ExpressionForKPI returns "" when the KPI has no formula configured, which
// callers treat as the sum fallback.
func (s *Store) ExpressionForKPI(ctx context.Context, kpiID string) (string, error) {
	var expression *string
	err := s.DB.QueryRow(ctx, `
    SELECT f.expression
    FROM kpis k
    LEFT JOIN formulas f ON f.id = k.formula_id
    WHERE k.id = $1
  `, kpiID).Scan(&expression)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if expression == nil {
		return "", nil
	}
	return *expression, nil
}
