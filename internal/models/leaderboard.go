package models

// LeaderboardEntry is one ranked row of the lifetime-points leaderboard.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	StudentID      string `json:"student_id"`
	FullName       string `json:"full_name"`
	LifetimePoints int    `json:"lifetime_points"`
	Level          int    `json:"level"`
}
