package models

import "time"

// Gift is a shared pool of point packages students can open. Remaining is a
// shared counter consumed with a conditional update to avoid races.
type Gift struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	Points    int       `db:"points" json:"points"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Remaining int       `db:"remaining" json:"remaining"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// GiftOpenResult reports a successful open.
type GiftOpenResult struct {
	OpenID   string           `json:"open_id"`
	GiftID   string           `json:"gift_id"`
	Points   int              `json:"points"`
	Snapshot *StudentSnapshot `json:"snapshot,omitempty"`
}
