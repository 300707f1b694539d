package models

import "time"

// ItemType enumerates cosmetic catalog slots.
type ItemType string

const (
	ItemTypeAvatar       ItemType = "avatar"
	ItemTypeEffect       ItemType = "effect"
	ItemTypeCornerBorder ItemType = "corner_border"
	ItemTypeCardPlate    ItemType = "card_plate"
)

// Valid reports whether the item type is one of the known slots.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeAvatar, ItemTypeEffect, ItemTypeCornerBorder, ItemTypeCardPlate:
		return true
	default:
		return false
	}
}

// UnlockCategory maps the item type to the ledger category used for
// purchase debits.
func (t ItemType) UnlockCategory() PointCategory {
	switch t {
	case ItemTypeAvatar:
		return CategoryUnlockAvatar
	case ItemTypeEffect:
		return CategoryUnlockEffect
	case ItemTypeCornerBorder:
		return CategoryUnlockBorder
	default:
		return CategoryUnlockCardPlate
	}
}

// CatalogItem is a cosmetic item with unlock gates and modifier fields.
// Multiplicative modifiers are absolute multipliers (1.0 = no effect) and
// nil when the item does not define the field.
type CatalogItem struct {
	ID               string    `db:"id" json:"id"`
	ItemType         ItemType  `db:"item_type" json:"item_type"`
	ItemKey          string    `db:"item_key" json:"item_key"`
	Name             string    `db:"name" json:"name"`
	UnlockLevel      int       `db:"unlock_level" json:"unlock_level"`
	UnlockPoints     int       `db:"unlock_points" json:"unlock_points"`
	Enabled          bool      `db:"enabled" json:"enabled"`
	LimitedEventOnly bool      `db:"limited_event_only" json:"limited_event_only"`
	CompetitionOnly  bool      `db:"competition_only" json:"competition_only"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`

	RuleKeeperMult     *float64 `db:"rule_keeper_mult" json:"rule_keeper_mult,omitempty"`
	RuleBreakerMult    *float64 `db:"rule_breaker_mult" json:"rule_breaker_mult,omitempty"`
	SkillPulseMult     *float64 `db:"skill_pulse_mult" json:"skill_pulse_mult,omitempty"`
	SpotlightMult      *float64 `db:"spotlight_mult" json:"spotlight_mult,omitempty"`
	DailyFreePoints    int      `db:"daily_free_points" json:"daily_free_points"`
	ChallengeBonusPct  float64  `db:"challenge_bonus_pct" json:"challenge_bonus_pct"`
	MVPBonusPct        float64  `db:"mvp_bonus_pct" json:"mvp_bonus_pct"`
}

// EligibilityState describes how (or whether) a student may use an item.
type EligibilityState string

const (
	UnlockedDefault    EligibilityState = "UNLOCKED_DEFAULT"
	UnlockedByPurchase EligibilityState = "UNLOCKED_BY_PURCHASE"
	UnlockedByCriteria EligibilityState = "UNLOCKED_BY_CRITERIA"
	Locked             EligibilityState = "LOCKED"
)

// Unlocked reports whether the state allows use of the item.
func (s EligibilityState) Unlocked() bool {
	return s != Locked
}

// CatalogItemView is a catalog item annotated with a student's eligibility.
type CatalogItemView struct {
	CatalogItem
	Eligibility EligibilityState `json:"eligibility"`
}
