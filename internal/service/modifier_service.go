package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type modifierLoadoutRepository interface {
	Get(ctx context.Context, studentID string) ([]models.LoadoutSlot, error)
}

type modifierCatalogRepository interface {
	FindByKey(ctx context.Context, itemType models.ItemType, itemKey string) (*models.CatalogItem, error)
}

// ModifierStack is the combined multiplier/bonus set derived from a
// student's equipped cosmetic items.
type ModifierStack struct {
	RuleKeeper        float64 `json:"rule_keeper"`
	RuleBreaker       float64 `json:"rule_breaker"`
	SkillPulse        float64 `json:"skill_pulse"`
	Spotlight         float64 `json:"spotlight"`
	DailyFreePoints   int     `json:"daily_free_points"`
	ChallengeBonusPct float64 `json:"challenge_bonus_pct"`
	MVPBonusPct       float64 `json:"mvp_bonus_pct"`
}

// MultiplierFor returns the combined multiplier applicable to a stacked
// category, or 1 for categories outside the stack.
func (m ModifierStack) MultiplierFor(category models.PointCategory) float64 {
	switch category {
	case models.CategoryRuleKeeper:
		return m.RuleKeeper
	case models.CategoryRuleBreaker:
		return m.RuleBreaker
	case models.CategorySpotlight:
		return m.Spotlight
	default:
		return 1
	}
}

// CombineModifiers folds the modifier fields of the given items. For each
// multiplicative field, deltas from the 1.0 baseline sum (they do not
// multiply together) and the combined value is clamped at zero. Additive
// integer fields clamp each item at zero before summing; percentage fields
// sum with no cap. The fold is order-independent.
func CombineModifiers(items []models.CatalogItem) ModifierStack {
	stack := ModifierStack{RuleKeeper: 1, RuleBreaker: 1, SkillPulse: 1, Spotlight: 1}

	ruleKeeperDelta := 0.0
	ruleBreakerDelta := 0.0
	skillPulseDelta := 0.0
	spotlightDelta := 0.0

	for _, item := range items {
		if item.RuleKeeperMult != nil {
			ruleKeeperDelta += *item.RuleKeeperMult - 1
		}
		if item.RuleBreakerMult != nil {
			ruleBreakerDelta += *item.RuleBreakerMult - 1
		}
		if item.SkillPulseMult != nil {
			skillPulseDelta += *item.SkillPulseMult - 1
		}
		if item.SpotlightMult != nil {
			spotlightDelta += *item.SpotlightMult - 1
		}
		if item.DailyFreePoints > 0 {
			stack.DailyFreePoints += item.DailyFreePoints
		}
		stack.ChallengeBonusPct += item.ChallengeBonusPct
		stack.MVPBonusPct += item.MVPBonusPct
	}

	stack.RuleKeeper = clampMultiplier(1 + ruleKeeperDelta)
	stack.RuleBreaker = clampMultiplier(1 + ruleBreakerDelta)
	stack.SkillPulse = clampMultiplier(1 + skillPulseDelta)
	stack.Spotlight = clampMultiplier(1 + spotlightDelta)

	return stack
}

func clampMultiplier(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// ModifierService resolves the equipped modifier stack for a student.
type ModifierService struct {
	loadouts modifierLoadoutRepository
	catalog  modifierCatalogRepository
	logger   *zap.Logger
}

// NewModifierService constructs the service.
func NewModifierService(loadouts modifierLoadoutRepository, catalog modifierCatalogRepository, logger *zap.Logger) *ModifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModifierService{loadouts: loadouts, catalog: catalog, logger: logger}
}

// Resolve loads the student's equipped items and combines their modifiers.
// Items that have been removed from the catalog or disabled contribute
// nothing; the loadout itself is repaired lazily on its next read.
func (s *ModifierService) Resolve(ctx context.Context, studentID string) (ModifierStack, error) {
	slots, err := s.loadouts.Get(ctx, studentID)
	if err != nil {
		return ModifierStack{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loadout")
	}

	items := make([]models.CatalogItem, 0, len(slots))
	for _, slot := range slots {
		item, err := s.catalog.FindByKey(ctx, slot.Slot, slot.ItemKey)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Debug("equipped item missing from catalog",
					zap.String("student_id", studentID), zap.String("slot", string(slot.Slot)), zap.String("item_key", slot.ItemKey))
				continue
			}
			return ModifierStack{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipped item")
		}
		if !item.Enabled {
			continue
		}
		items = append(items, *item)
	}

	return CombineModifiers(items), nil
}
