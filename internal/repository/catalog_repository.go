package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

const catalogColumns = `id, item_type, item_key, name, unlock_level, unlock_points, enabled, limited_event_only, competition_only,
rule_keeper_mult, rule_breaker_mult, skill_pulse_mult, spotlight_mult, daily_free_points, challenge_bonus_pct, mvp_bonus_pct,
created_at, updated_at`

// CatalogRepository reads cosmetic catalog items.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a new repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindByKey loads one catalog item by its type and key.
func (r *CatalogRepository) FindByKey(ctx context.Context, itemType models.ItemType, itemKey string) (*models.CatalogItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM catalog_items WHERE item_type = $1 AND item_key = $2`, catalogColumns)
	var item models.CatalogItem
	if err := r.db.GetContext(ctx, &item, query, itemType, itemKey); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByType returns all items of a type, enabled or not. Callers apply
// their own eligibility filtering.
func (r *CatalogRepository) ListByType(ctx context.Context, itemType models.ItemType) ([]models.CatalogItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM catalog_items WHERE item_type = $1 ORDER BY unlock_level, item_key`, catalogColumns)
	var items []models.CatalogItem
	if err := r.db.SelectContext(ctx, &items, query, itemType); err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	return items, nil
}
