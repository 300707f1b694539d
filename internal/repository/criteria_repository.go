package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// CriteriaRepository manages unlock criteria, item requirements and
// per-student fulfillment state.
type CriteriaRepository struct {
	db *sqlx.DB
}

// NewCriteriaRepository constructs a new repository.
func NewCriteriaRepository(db *sqlx.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

// ItemCriterionIDs returns criteria linked to a catalog item.
func (r *CriteriaRepository) ItemCriterionIDs(ctx context.Context, itemType models.ItemType, itemKey string) ([]string, error) {
	query := `SELECT criterion_id FROM item_criterion_requirements WHERE item_type = $1 AND item_key = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, itemType, itemKey); err != nil {
		return nil, fmt.Errorf("item criterion ids: %w", err)
	}
	return ids, nil
}

// FulfilledCriterionIDs returns the criteria a student has satisfied.
func (r *CriteriaRepository) FulfilledCriterionIDs(ctx context.Context, studentID string) ([]string, error) {
	query := `SELECT criterion_id FROM student_criterion_fulfillments WHERE student_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("fulfilled criterion ids: %w", err)
	}
	return ids, nil
}

// ListByKind returns criteria of one kind.
func (r *CriteriaRepository) ListByKind(ctx context.Context, kind models.CriterionKind) ([]models.UnlockCriterion, error) {
	query := `SELECT id, key, description, kind, threshold, created_at FROM unlock_criteria WHERE kind = $1 ORDER BY threshold`
	var criteria []models.UnlockCriterion
	if err := r.db.SelectContext(ctx, &criteria, query, kind); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return criteria, nil
}

// InsertFulfillment marks a criterion satisfied. Duplicate fulfillments are
// absorbed by the unique (student_id, criterion_id) pair.
func (r *CriteriaRepository) InsertFulfillment(ctx context.Context, f *models.StudentCriterionFulfillment) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.FulfilledAt.IsZero() {
		f.FulfilledAt = time.Now().UTC()
	}
	query := `INSERT INTO student_criterion_fulfillments (id, student_id, criterion_id, fulfilled_at)
VALUES (:id, :student_id, :criterion_id, :fulfilled_at)
ON CONFLICT (student_id, criterion_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("insert fulfillment: %w", err)
	}
	return nil
}
