package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// WheelRepository reads prize wheel configuration.
type WheelRepository struct {
	db *sqlx.DB
}

// NewWheelRepository constructs a new repository.
func NewWheelRepository(db *sqlx.DB) *WheelRepository {
	return &WheelRepository{db: db}
}

// ListEnabled returns spinnable prizes.
func (r *WheelRepository) ListEnabled(ctx context.Context) ([]models.WheelPrize, error) {
	query := `SELECT id, label, points, weight, enabled, created_at FROM wheel_prizes WHERE enabled = TRUE ORDER BY id`
	var prizes []models.WheelPrize
	if err := r.db.SelectContext(ctx, &prizes, query); err != nil {
		return nil, fmt.Errorf("list wheel prizes: %w", err)
	}
	return prizes, nil
}
