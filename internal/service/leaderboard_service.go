package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type leaderboardCache interface {
	LeaderboardTop(ctx context.Context, n int) ([]redis.Z, error)
}

type leaderboardStudentRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

// LeaderboardService reads the lifetime-points ranking. Scores live in a
// Redis sorted set maintained by recompute; student details are joined in
// from Postgres on read.
type LeaderboardService struct {
	cache    leaderboardCache
	students leaderboardStudentRepository
	size     int
	logger   *zap.Logger
}

// NewLeaderboardService constructs the service.
func NewLeaderboardService(cache leaderboardCache, students leaderboardStudentRepository, size int, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 25
	}
	return &LeaderboardService{cache: cache, students: students, size: size, logger: logger}
}

// Top returns the current ranking, best first. Students deleted since their
// last score write are skipped.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	scores, err := s.cache.LeaderboardTop(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read leaderboard")
	}
	if len(scores) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]string, 0, len(scores))
	for _, z := range scores {
		if id, ok := z.Member.(string); ok {
			ids = append(ids, id)
		}
	}
	students, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ranked students")
	}
	byID := make(map[string]models.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	rank := 0
	for _, z := range scores {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		student, found := byID[id]
		if !found {
			s.logger.Debug("leaderboard member missing from storage", zap.String("student_id", id))
			continue
		}
		rank++
		entries = append(entries, models.LeaderboardEntry{
			Rank:           rank,
			StudentID:      student.ID,
			FullName:       student.FullName,
			LifetimePoints: int(z.Score),
			Level:          student.Level,
		})
	}
	return entries, nil
}
