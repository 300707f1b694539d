package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoclub/points-api/internal/models"
)

// ChallengeRepository manages challenges and completion records.
type ChallengeRepository struct {
	db *sqlx.DB
}

// NewChallengeRepository constructs a new repository.
func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// FindByKey loads one challenge.
func (r *ChallengeRepository) FindByKey(ctx context.Context, key string) (*models.Challenge, error) {
	query := `SELECT id, key, title, tier, points_override, limit_mode, limit_count, window_days, daily_limit, enabled, created_at
FROM challenges WHERE key = $1`
	var challenge models.Challenge
	if err := r.db.GetContext(ctx, &challenge, query, key); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// CountCompletionsSince counts a student's completions of a challenge. A nil
// since counts over all time.
func (r *ChallengeRepository) CountCompletionsSince(ctx context.Context, challengeID, studentID string, since *time.Time) (int, error) {
	var total int
	if since == nil {
		query := `SELECT COUNT(*) FROM challenge_completions WHERE challenge_id = $1 AND student_id = $2`
		if err := r.db.GetContext(ctx, &total, query, challengeID, studentID); err != nil {
			return 0, fmt.Errorf("count completions: %w", err)
		}
		return total, nil
	}
	query := `SELECT COUNT(*) FROM challenge_completions WHERE challenge_id = $1 AND student_id = $2 AND completed_at >= $3`
	if err := r.db.GetContext(ctx, &total, query, challengeID, studentID, *since); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return total, nil
}

// InsertCompletion records an attempt, awarded or suppressed.
func (r *ChallengeRepository) InsertCompletion(ctx context.Context, completion *models.ChallengeCompletion) error {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now().UTC()
	}
	query := `INSERT INTO challenge_completions (id, challenge_id, student_id, points_awarded, completed_at)
VALUES (:id, :challenge_id, :student_id, :points_awarded, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, completion); err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}
