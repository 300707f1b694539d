package models

// LevelThreshold maps a level to the minimum lifetime points required.
// Rows present in the level_thresholds table form an explicit override
// curve which replaces the generated one entirely.
type LevelThreshold struct {
	Level             int `db:"level" json:"level"`
	MinLifetimePoints int `db:"min_lifetime_points" json:"min_lifetime_points"`
}
