package models

import "time"

// RepeatMode bounds how often a challenge can pay out.
type RepeatMode string

const (
	RepeatOnce     RepeatMode = "once"
	RepeatLifetime RepeatMode = "lifetime"
	RepeatDaily    RepeatMode = "daily"
	RepeatWeekly   RepeatMode = "weekly"
	RepeatMonthly  RepeatMode = "monthly"
	RepeatYearly   RepeatMode = "yearly"
	RepeatCustom   RepeatMode = "custom"
)

// ChallengeTier selects the default point award when no override is set.
type ChallengeTier string

const (
	TierBronze ChallengeTier = "bronze"
	TierSilver ChallengeTier = "silver"
	TierGold   ChallengeTier = "gold"
)

// Challenge is a repeatable skill-practice task worth points.
type Challenge struct {
	ID             string        `db:"id" json:"id"`
	Key            string        `db:"key" json:"key"`
	Title          string        `db:"title" json:"title"`
	Tier           ChallengeTier `db:"tier" json:"tier"`
	PointsOverride *int          `db:"points_override" json:"points_override,omitempty"`
	LimitMode      RepeatMode    `db:"limit_mode" json:"limit_mode"`
	LimitCount     int           `db:"limit_count" json:"limit_count"`
	WindowDays     int           `db:"window_days" json:"window_days"`
	DailyLimit     int           `db:"daily_limit" json:"daily_limit"`
	Enabled        bool          `db:"enabled" json:"enabled"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// ChallengeCompletion records an attempt, whether or not points were paid.
type ChallengeCompletion struct {
	ID            string    `db:"id" json:"id"`
	ChallengeID   string    `db:"challenge_id" json:"challenge_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	PointsAwarded int       `db:"points_awarded" json:"points_awarded"`
	CompletedAt   time.Time `db:"completed_at" json:"completed_at"`
}

// CompletionResult is the challenge flow response. Completed is true even
// when the repeat limit suppressed the award; Warnings says why no points
// were paid.
type CompletionResult struct {
	Completed     bool             `json:"completed"`
	PointsAwarded int              `json:"points_awarded"`
	Snapshot      *StudentSnapshot `json:"snapshot,omitempty"`
	Warnings      []string         `json:"-"`
}
