package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/jobs"
)

type achievementCriteriaRepository interface {
	ListByKind(ctx context.Context, kind models.CriterionKind) ([]models.UnlockCriterion, error)
	InsertFulfillment(ctx context.Context, f *models.StudentCriterionFulfillment) error
}

const jobTypeLevelUp = "level_up"

type levelUpPayload struct {
	StudentID string `json:"student_id"`
	FromLevel int    `json:"from_level"`
	ToLevel   int    `json:"to_level"`
}

// AchievementService fulfills level-based unlock criteria when students
// level up. The work rides a background queue so the grant path never waits
// on it; fulfillment inserts are idempotent, so retries are harmless.
type AchievementService struct {
	criteria achievementCriteriaRepository
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewAchievementService constructs the service and its queue. Call Start
// before enqueueing.
func NewAchievementService(criteria achievementCriteriaRepository, logger *zap.Logger, cfg jobs.QueueConfig) *AchievementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AchievementService{criteria: criteria, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("achievements", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *AchievementService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AchievementService) Stop() {
	s.queue.Stop()
}

// OnLevelUp enqueues criterion fulfillment for a level increase. Intended as
// the ledger service's level-up callback.
func (s *AchievementService) OnLevelUp(studentID string, fromLevel, toLevel int) {
	payload, err := json.Marshal(levelUpPayload{StudentID: studentID, FromLevel: fromLevel, ToLevel: toLevel})
	if err != nil {
		s.logger.Error("marshal level-up payload", zap.Error(err))
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeLevelUp, Payload: payload}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue level-up job",
			zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *AchievementService) handle(ctx context.Context, job jobs.Job) error {
	if job.Type != jobTypeLevelUp {
		s.logger.Warn("unknown job type", zap.String("type", job.Type))
		return nil
	}
	raw, ok := job.Payload.([]byte)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	var payload levelUpPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("unmarshal level-up payload: %w", err)
	}
	return s.fulfillLevelCriteria(ctx, payload.StudentID, payload.ToLevel)
}

// fulfillLevelCriteria marks every reach_level criterion at or below the
// student's new level as satisfied.
func (s *AchievementService) fulfillLevelCriteria(ctx context.Context, studentID string, level int) error {
	criteria, err := s.criteria.ListByKind(ctx, models.CriterionReachLevel)
	if err != nil {
		return fmt.Errorf("list level criteria: %w", err)
	}
	for _, criterion := range criteria {
		if criterion.Threshold > level {
			continue
		}
		f := &models.StudentCriterionFulfillment{StudentID: studentID, CriterionID: criterion.ID}
		if err := s.criteria.InsertFulfillment(ctx, f); err != nil {
			return fmt.Errorf("fulfill criterion %s: %w", criterion.Key, err)
		}
		s.logger.Debug("criterion fulfilled",
			zap.String("student_id", studentID),
			zap.String("criterion", criterion.Key),
			zap.Int("level", level))
	}
	return nil
}
