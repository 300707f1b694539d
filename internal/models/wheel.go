package models

import "time"

// WheelPrize is one weighted segment of the prize wheel.
type WheelPrize struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	Points    int       `db:"points" json:"points"`
	Weight    int       `db:"weight" json:"weight"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SpinResult reports the prize landed on and the refreshed snapshot.
type SpinResult struct {
	SpinID   string           `json:"spin_id"`
	Prize    WheelPrize       `json:"prize"`
	Snapshot *StudentSnapshot `json:"snapshot,omitempty"`
}
