package models

import "time"

// Student represents a program member and their cached point aggregates.
// The aggregate columns (points_balance, lifetime_points, level) are derived
// from the ledger; recompute is the only writer.
type Student struct {
	ID                string    `db:"id" json:"id"`
	FullName          string    `db:"full_name" json:"full_name"`
	PointsBalance     int       `db:"points_balance" json:"points_balance"`
	LifetimePoints    int       `db:"lifetime_points" json:"lifetime_points"`
	Level             int       `db:"level" json:"level"`
	IsCompetitionTeam bool      `db:"is_competition_team" json:"is_competition_team"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// StudentSnapshot is the point-economy view returned after grants and
// purchases. Level is always computed from lifetime points on read; the
// stored column is a cache only.
type StudentSnapshot struct {
	StudentID      string `json:"student_id"`
	FullName       string `json:"full_name"`
	PointsBalance  int    `json:"points_balance"`
	LifetimePoints int    `json:"lifetime_points"`
	Level          int    `json:"level"`
	NextLevelAt    int    `json:"next_level_at"`
}
