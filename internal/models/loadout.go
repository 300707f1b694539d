package models

import "time"

// LoadoutSlot is one equipped item for a student. The slot is keyed by item
// type: one avatar, one effect, one corner border, one card plate.
type LoadoutSlot struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Slot      ItemType  `db:"slot" json:"slot"`
	ItemKey   string    `db:"item_key" json:"item_key"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Loadout is a student's full equipped set, keyed by slot.
type Loadout struct {
	StudentID string              `json:"student_id"`
	Slots     map[ItemType]string `json:"slots"`
}

// StudentCustomUnlock is a permanent, idempotent purchase/grant record.
type StudentCustomUnlock struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ItemType  ItemType  `db:"item_type" json:"item_type"`
	ItemKey   string    `db:"item_key" json:"item_key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
