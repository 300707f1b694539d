package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// UnlockRepository manages permanent custom unlock records.
type UnlockRepository struct {
	db *sqlx.DB
}

// NewUnlockRepository constructs a new repository.
func NewUnlockRepository(db *sqlx.DB) *UnlockRepository {
	return &UnlockRepository{db: db}
}

// Exists reports whether the student already holds the unlock.
func (r *UnlockRepository) Exists(ctx context.Context, studentID string, itemType models.ItemType, itemKey string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM student_custom_unlocks WHERE student_id = $1 AND item_type = $2 AND item_key = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, itemType, itemKey); err != nil {
		return false, fmt.Errorf("check unlock: %w", err)
	}
	return exists, nil
}

// Insert records the unlock. The unique (student_id, item_type, item_key)
// set makes retries harmless: conflicting inserts are silently absorbed.
func (r *UnlockRepository) Insert(ctx context.Context, unlock *models.StudentCustomUnlock) error {
	if unlock.ID == "" {
		unlock.ID = uuid.NewString()
	}
	if unlock.CreatedAt.IsZero() {
		unlock.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO student_custom_unlocks (id, student_id, item_type, item_key, created_at)
VALUES (:id, :student_id, :item_type, :item_key, :created_at)
ON CONFLICT (student_id, item_type, item_key) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, unlock); err != nil {
		return fmt.Errorf("insert unlock: %w", err)
	}
	return nil
}

// ListByStudent returns all unlocks held by a student.
func (r *UnlockRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentCustomUnlock, error) {
	query := `SELECT id, student_id, item_type, item_key, created_at FROM student_custom_unlocks WHERE student_id = $1`
	var unlocks []models.StudentCustomUnlock
	if err := r.db.SelectContext(ctx, &unlocks, query, studentID); err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	return unlocks, nil
}
