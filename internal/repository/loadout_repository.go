package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// LoadoutRepository manages equipped cosmetic slots.
type LoadoutRepository struct {
	db *sqlx.DB
}

// NewLoadoutRepository constructs a new repository.
func NewLoadoutRepository(db *sqlx.DB) *LoadoutRepository {
	return &LoadoutRepository{db: db}
}

// Get returns all equipped slots for a student.
func (r *LoadoutRepository) Get(ctx context.Context, studentID string) ([]models.LoadoutSlot, error) {
	query := `SELECT id, student_id, slot, item_key, updated_at FROM student_loadouts WHERE student_id = $1 ORDER BY slot`
	var slots []models.LoadoutSlot
	if err := r.db.SelectContext(ctx, &slots, query, studentID); err != nil {
		return nil, fmt.Errorf("get loadout: %w", err)
	}
	return slots, nil
}

// Upsert equips an item into its slot, replacing any previous occupant.
func (r *LoadoutRepository) Upsert(ctx context.Context, slot *models.LoadoutSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO student_loadouts (id, student_id, slot, item_key, updated_at)
VALUES (:id, :student_id, :slot, :item_key, :updated_at)
ON CONFLICT (student_id, slot) DO UPDATE SET item_key = EXCLUDED.item_key, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("upsert loadout slot: %w", err)
	}
	return nil
}
