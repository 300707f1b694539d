package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// ThresholdRepository reads explicit level threshold overrides.
type ThresholdRepository struct {
	db *sqlx.DB
}

// NewThresholdRepository constructs a new repository.
func NewThresholdRepository(db *sqlx.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// List returns the override table ordered by level. An empty result means
// the generated curve applies.
func (r *ThresholdRepository) List(ctx context.Context) ([]models.LevelThreshold, error) {
	query := `SELECT level, min_lifetime_points FROM level_thresholds ORDER BY level`
	var thresholds []models.LevelThreshold
	if err := r.db.SelectContext(ctx, &thresholds, query); err != nil {
		return nil, fmt.Errorf("list level thresholds: %w", err)
	}
	return thresholds, nil
}
