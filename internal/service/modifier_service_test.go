package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

type mockLoadoutReader struct {
	slots []models.LoadoutSlot
}

func (m *mockLoadoutReader) Get(ctx context.Context, studentID string) ([]models.LoadoutSlot, error) {
	return m.slots, nil
}

type mockCatalogReader struct {
	items map[string]*models.CatalogItem
}

func (m *mockCatalogReader) FindByKey(ctx context.Context, itemType models.ItemType, itemKey string) (*models.CatalogItem, error) {
	if item, ok := m.items[string(itemType)+"/"+itemKey]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func TestCombineModifiersSumsDeltas(t *testing.T) {
	items := []models.CatalogItem{
		{RuleKeeperMult: floatPtr(1.5)},
		{RuleKeeperMult: floatPtr(1.3)},
	}
	stack := CombineModifiers(items)
	// 1 + (0.5 + 0.3), not 1.5 * 1.3
	assert.InDelta(t, 1.8, stack.RuleKeeper, 0.0001)
	assert.InDelta(t, 1.0, stack.RuleBreaker, 0.0001)
}

func TestCombineModifiersClampsAtZero(t *testing.T) {
	items := []models.CatalogItem{
		{RuleBreakerMult: floatPtr(0.2)},
		{RuleBreakerMult: floatPtr(0.1)},
	}
	stack := CombineModifiers(items)
	// 1 + (-0.8 + -0.9) = -0.7 -> clamps to 0
	assert.Zero(t, stack.RuleBreaker)
}

func TestCombineModifiersAdditiveFields(t *testing.T) {
	items := []models.CatalogItem{
		{DailyFreePoints: 5, ChallengeBonusPct: 10, MVPBonusPct: 5},
		{DailyFreePoints: -3, ChallengeBonusPct: 15},
	}
	stack := CombineModifiers(items)
	assert.Equal(t, 5, stack.DailyFreePoints, "negative per-item values clamp before summing")
	assert.InDelta(t, 25.0, stack.ChallengeBonusPct, 0.0001)
	assert.InDelta(t, 5.0, stack.MVPBonusPct, 0.0001)
}

func TestCombineModifiersEmpty(t *testing.T) {
	stack := CombineModifiers(nil)
	assert.InDelta(t, 1.0, stack.RuleKeeper, 0.0001)
	assert.InDelta(t, 1.0, stack.Spotlight, 0.0001)
	assert.Zero(t, stack.DailyFreePoints)
}

func TestResolveSkipsDisabledAndMissing(t *testing.T) {
	loadouts := &mockLoadoutReader{slots: []models.LoadoutSlot{
		{StudentID: "s1", Slot: models.ItemTypeAvatar, ItemKey: "fox"},
		{StudentID: "s1", Slot: models.ItemTypeEffect, ItemKey: "ghost"},
		{StudentID: "s1", Slot: models.ItemTypeCardPlate, ItemKey: "gold"},
	}}
	catalog := &mockCatalogReader{items: map[string]*models.CatalogItem{
		"avatar/fox":      {ItemType: models.ItemTypeAvatar, ItemKey: "fox", Enabled: true, RuleKeeperMult: floatPtr(1.5)},
		"card_plate/gold": {ItemType: models.ItemTypeCardPlate, ItemKey: "gold", Enabled: false, RuleKeeperMult: floatPtr(2.0)},
	}}

	svc := NewModifierService(loadouts, catalog, nil)
	stack, err := svc.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, stack.RuleKeeper, 0.0001, "missing and disabled items contribute nothing")
}

func TestMultiplierFor(t *testing.T) {
	stack := ModifierStack{RuleKeeper: 1.5, RuleBreaker: 0.5, Spotlight: 2}
	assert.InDelta(t, 1.5, stack.MultiplierFor(models.CategoryRuleKeeper), 0.0001)
	assert.InDelta(t, 0.5, stack.MultiplierFor(models.CategoryRuleBreaker), 0.0001)
	assert.InDelta(t, 2.0, stack.MultiplierFor(models.CategorySpotlight), 0.0001)
	assert.InDelta(t, 1.0, stack.MultiplierFor(models.CategoryManual), 0.0001)
	assert.InDelta(t, 1.0, stack.MultiplierFor(models.CategoryChallenge), 0.0001)
}
