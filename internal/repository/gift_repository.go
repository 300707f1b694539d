package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// GiftRepository manages shared gift pools.
type GiftRepository struct {
	db *sqlx.DB
}

// NewGiftRepository constructs a new repository.
func NewGiftRepository(db *sqlx.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

// FindByID loads one gift.
func (r *GiftRepository) FindByID(ctx context.Context, id string) (*models.Gift, error) {
	query := `SELECT id, label, points, quantity, remaining, enabled, expires_at, created_at FROM gifts WHERE id = $1`
	var gift models.Gift
	if err := r.db.GetContext(ctx, &gift, query, id); err != nil {
		return nil, err
	}
	return &gift, nil
}

// ConsumeOne decrements the remaining counter only if it still equals the
// value last read, preventing double consumption under concurrency. It
// returns false when another request won the race or the pool is empty.
func (r *GiftRepository) ConsumeOne(ctx context.Context, id string, expectedRemaining int) (bool, error) {
	query := `UPDATE gifts SET remaining = remaining - 1 WHERE id = $1 AND remaining = $2 AND remaining > 0`
	result, err := r.db.ExecContext(ctx, query, id, expectedRemaining)
	if err != nil {
		return false, fmt.Errorf("consume gift: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume gift rows: %w", err)
	}
	return affected == 1, nil
}
