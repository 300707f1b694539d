package models

import "time"

// PointCategory classifies ledger entries by award path.
type PointCategory string

const (
	CategoryManual          PointCategory = "manual"
	CategoryRuleKeeper      PointCategory = "rule_keeper"
	CategoryRuleBreaker     PointCategory = "rule_breaker"
	CategorySpotlight       PointCategory = "spotlight"
	CategoryChallenge       PointCategory = "challenge"
	CategoryPrizeWheel      PointCategory = "prize_wheel"
	CategoryGift            PointCategory = "gift"
	CategoryUnlockAvatar    PointCategory = "unlock_avatar"
	CategoryUnlockEffect    PointCategory = "unlock_effect"
	CategoryUnlockBorder    PointCategory = "unlock_corner_border"
	CategoryUnlockCardPlate PointCategory = "unlock_card_plate"
)

// Stacked reports whether the category is subject to the equipped modifier
// stack. Stacked awards record their base points and applied multiplier for
// audit.
func (c PointCategory) Stacked() bool {
	switch c {
	case CategoryRuleKeeper, CategoryRuleBreaker, CategorySpotlight:
		return true
	default:
		return false
	}
}

// LedgerEntry is one append-only signed point transaction. Corrections are
// compensating entries, never edits.
type LedgerEntry struct {
	ID               string        `db:"id" json:"id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	Points           int           `db:"points" json:"points"`
	PointsBase       *int          `db:"points_base" json:"points_base,omitempty"`
	PointsMultiplier *float64      `db:"points_multiplier" json:"points_multiplier,omitempty"`
	Category         PointCategory `db:"category" json:"category"`
	SourceType       *string       `db:"source_type" json:"source_type,omitempty"`
	SourceID         *string       `db:"source_id" json:"source_id,omitempty"`
	Note             string        `db:"note" json:"note"`
	CreatedBy        string        `db:"created_by" json:"created_by"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// LedgerFilter limits ledger listings.
type LedgerFilter struct {
	StudentID string
	Category  PointCategory
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// LedgerAggregates holds the authoritative sums derived from a student's
// full ledger.
type LedgerAggregates struct {
	Balance  int `db:"balance"`
	Lifetime int `db:"lifetime"`
}
