package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dojoclub/points-api/internal/models"
)

// StudentRepository manages persistence for students and their cached
// point aggregates.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID loads one student row.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT id, full_name, points_balance, lifetime_points, level, is_competition_team, active, created_at, updated_at
FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs loads students preserving no particular order.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, full_name, points_balance, lifetime_points, level, is_competition_team, active, created_at, updated_at
FROM students WHERE id = ANY($1)`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}

// UpdateAggregates writes a full ledger-derived snapshot onto the student
// row. The single UPDATE keeps concurrent recomputes from producing torn
// writes: each call lands one internally consistent snapshot.
func (r *StudentRepository) UpdateAggregates(ctx context.Context, id string, balance, lifetime, level int) error {
	query := `UPDATE students SET points_balance = $2, lifetime_points = $3, level = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, balance, lifetime, level, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student aggregates: %w", err)
	}
	return nil
}

// ApplyDelta incrementally adjusts aggregates when the authoritative
// recompute path is unavailable. Lifetime only accumulates positive deltas.
func (r *StudentRepository) ApplyDelta(ctx context.Context, id string, delta int) error {
	query := `UPDATE students SET points_balance = points_balance + $2,
lifetime_points = lifetime_points + GREATEST($2, 0), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply student delta: %w", err)
	}
	return nil
}
