package models

import "time"

// CriterionKind classifies how a criterion gets fulfilled.
type CriterionKind string

const (
	// CriterionReachLevel is auto-fulfilled when a student reaches the
	// threshold level.
	CriterionReachLevel CriterionKind = "reach_level"
	// CriterionEvent is fulfilled manually by staff (event attendance,
	// tournament placement and similar).
	CriterionEvent CriterionKind = "event"
)

// UnlockCriterion is a named eligibility flag.
type UnlockCriterion struct {
	ID          string        `db:"id" json:"id"`
	Key         string        `db:"key" json:"key"`
	Description string        `db:"description" json:"description"`
	Kind        CriterionKind `db:"kind" json:"kind"`
	Threshold   int           `db:"threshold" json:"threshold"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// ItemCriterionRequirement links a catalog item to a criterion that can
// unlock it.
type ItemCriterionRequirement struct {
	ID          string   `db:"id" json:"id"`
	ItemType    ItemType `db:"item_type" json:"item_type"`
	ItemKey     string   `db:"item_key" json:"item_key"`
	CriterionID string   `db:"criterion_id" json:"criterion_id"`
}

// StudentCriterionFulfillment records that a student satisfied a criterion.
type StudentCriterionFulfillment struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CriterionID string    `db:"criterion_id" json:"criterion_id"`
	FulfilledAt time.Time `db:"fulfilled_at" json:"fulfilled_at"`
}
