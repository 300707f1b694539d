package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/internal/repository"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type ledgerRepository interface {
	Insert(ctx context.Context, entry *models.LedgerEntry) error
	FindBySource(ctx context.Context, sourceType, sourceID string) (*models.LedgerEntry, error)
	Aggregates(ctx context.Context, studentID string) (models.LedgerAggregates, error)
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error)
}

type ledgerStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateAggregates(ctx context.Context, id string, balance, lifetime, level int) error
	ApplyDelta(ctx context.Context, id string, delta int) error
}

type levelResolver interface {
	EffectiveLevel(ctx context.Context, lifetimePoints int) (int, error)
	NextLevelAt(ctx context.Context, level int) (int, error)
}

type leaderboardWriter interface {
	LeaderboardSet(ctx context.Context, studentID string, lifetimePoints int) error
}

// LevelUpFunc is invoked after recompute observes a level increase. It runs
// on the caller's goroutine; implementations should hand off quickly.
type LevelUpFunc func(studentID string, fromLevel, toLevel int)

// AppendResult reports the outcome of a ledger append plus recompute.
type AppendResult struct {
	Entry    *models.LedgerEntry     `json:"entry"`
	Snapshot *models.StudentSnapshot `json:"snapshot"`
	// Duplicate is true when the entry's source was already recorded and
	// the append was absorbed as a no-op.
	Duplicate bool     `json:"duplicate,omitempty"`
	Warnings  []string `json:"-"`
}

// LedgerService owns the append-only transaction log and the derived
// student aggregates. It is the sole writer of points_balance,
// lifetime_points and level on the student row.
type LedgerService struct {
	ledger      ledgerRepository
	students    ledgerStudentRepository
	thresholds  levelResolver
	leaderboard leaderboardWriter
	cache       *CacheService
	metrics     *MetricsService
	onLevelUp   LevelUpFunc
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewLedgerService constructs the service. cache, leaderboard, metrics and
// onLevelUp may be nil.
func NewLedgerService(
	ledger ledgerRepository,
	students ledgerStudentRepository,
	thresholds levelResolver,
	leaderboard leaderboardWriter,
	cache *CacheService,
	metrics *MetricsService,
	snapshotTTL time.Duration,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if snapshotTTL <= 0 {
		snapshotTTL = time.Minute
	}
	return &LedgerService{
		ledger:      ledger,
		students:    students,
		thresholds:  thresholds,
		leaderboard: leaderboard,
		cache:       cache,
		metrics:     metrics,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// SetLevelUpFunc installs the level-up callback. Wiring happens after
// construction because the achievement pipeline depends on this service.
func (s *LedgerService) SetLevelUpFunc(fn LevelUpFunc) {
	s.onLevelUp = fn
}

func snapshotCacheKey(studentID string) string {
	return fmt.Sprintf("snapshot:%s", studentID)
}

// Append validates and writes one ledger entry. A zero delta is rejected.
// When the entry carries a source and that source was already recorded, the
// append is absorbed: the existing entry is returned with Duplicate set and
// nothing is written.
func (s *LedgerService) Append(ctx context.Context, entry *models.LedgerEntry) (*models.LedgerEntry, bool, error) {
	if entry.Points == 0 {
		return nil, false, appErrors.ErrInvalidAmount
	}
	if entry.StudentID == "" {
		return nil, false, appErrors.ErrValidation
	}

	if _, err := s.students.FindByID(ctx, entry.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.ErrNotFound
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.ledger.Insert(ctx, entry); err != nil {
		if repository.IsUniqueViolation(err) && entry.SourceType != nil && entry.SourceID != nil {
			existing, findErr := s.ledger.FindBySource(ctx, *entry.SourceType, *entry.SourceID)
			if findErr != nil {
				return nil, false, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing grant")
			}
			s.metrics.RecordDuplicateGrant()
			s.logger.Info("duplicate grant absorbed",
				zap.String("student_id", entry.StudentID),
				zap.String("source_type", *entry.SourceType),
				zap.String("source_id", *entry.SourceID))
			return existing, true, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append ledger entry")
	}

	s.metrics.ObserveGrant(string(entry.Category), entry.Points)
	return entry, false, nil
}

// Recompute derives balance, lifetime and level from the full ledger and
// writes them onto the student row in one update. It returns the fresh
// snapshot.
func (s *LedgerService) Recompute(ctx context.Context, studentID string) (*models.StudentSnapshot, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	agg, err := s.ledger.Aggregates(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive ledger aggregates")
	}

	level, err := s.thresholds.EffectiveLevel(ctx, agg.Lifetime)
	if err != nil {
		return nil, err
	}

	if err := s.students.UpdateAggregates(ctx, studentID, agg.Balance, agg.Lifetime, level); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist aggregates")
	}

	if level > student.Level {
		s.metrics.RecordLevelUp()
		s.logger.Info("student leveled up",
			zap.String("student_id", studentID),
			zap.Int("from", student.Level),
			zap.Int("to", level))
		if s.onLevelUp != nil {
			s.onLevelUp(studentID, student.Level, level)
		}
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.LeaderboardSet(ctx, studentID, agg.Lifetime); err != nil {
			s.logger.Warn("leaderboard update failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	nextAt, err := s.thresholds.NextLevelAt(ctx, level)
	if err != nil {
		return nil, err
	}

	snapshot := &models.StudentSnapshot{
		StudentID:      studentID,
		FullName:       student.FullName,
		PointsBalance:  agg.Balance,
		LifetimePoints: agg.Lifetime,
		Level:          level,
		NextLevelAt:    nextAt,
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, snapshotCacheKey(studentID), snapshot, s.snapshotTTL); err != nil {
			s.logger.Debug("snapshot cache refresh failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	return snapshot, nil
}

// AppendAndRecompute appends one entry and recomputes the student's
// aggregates. The ledger write is never rolled back: when recompute fails,
// the aggregates are adjusted incrementally and a warning is attached so
// callers can surface the degraded state.
func (s *LedgerService) AppendAndRecompute(ctx context.Context, entry *models.LedgerEntry) (*AppendResult, error) {
	written, duplicate, err := s.Append(ctx, entry)
	if err != nil {
		return nil, err
	}

	result := &AppendResult{Entry: written, Duplicate: duplicate}
	if duplicate {
		snapshot, snapErr := s.Snapshot(ctx, entry.StudentID)
		if snapErr != nil {
			return nil, snapErr
		}
		result.Snapshot = snapshot
		return result, nil
	}

	snapshot, err := s.Recompute(ctx, entry.StudentID)
	if err != nil {
		s.metrics.RecordRecomputeFailure()
		s.logger.Error("recompute failed, degrading to incremental update",
			zap.String("student_id", entry.StudentID), zap.Error(err))

		if deltaErr := s.students.ApplyDelta(ctx, entry.StudentID, entry.Points); deltaErr != nil {
			s.logger.Error("incremental aggregate update failed",
				zap.String("student_id", entry.StudentID), zap.Error(deltaErr))
			result.Warnings = append(result.Warnings, "aggregates are stale; a reconcile sweep will repair them")
		} else {
			result.Warnings = append(result.Warnings, "aggregates updated incrementally; level may lag until the next recompute")
		}

		snapshot, err = s.Snapshot(ctx, entry.StudentID)
		if err != nil {
			return nil, err
		}
	}

	result.Snapshot = snapshot
	return result, nil
}

// Snapshot returns the student's current point-economy view. The level is
// computed from lifetime points on read, never trusted from the stored
// column.
func (s *LedgerService) Snapshot(ctx context.Context, studentID string) (*models.StudentSnapshot, error) {
	if s.cache.Enabled() {
		var cached models.StudentSnapshot
		if hit, err := s.cache.Get(ctx, snapshotCacheKey(studentID), &cached); err == nil && hit {
			return &cached, nil
		}
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	level, err := s.thresholds.EffectiveLevel(ctx, student.LifetimePoints)
	if err != nil {
		return nil, err
	}
	nextAt, err := s.thresholds.NextLevelAt(ctx, level)
	if err != nil {
		return nil, err
	}

	snapshot := &models.StudentSnapshot{
		StudentID:      student.ID,
		FullName:       student.FullName,
		PointsBalance:  student.PointsBalance,
		LifetimePoints: student.LifetimePoints,
		Level:          level,
		NextLevelAt:    nextAt,
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, snapshotCacheKey(studentID), snapshot, s.snapshotTTL)
	}

	return snapshot, nil
}

// List returns a page of the student's ledger, newest first.
func (s *LedgerService) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	entries, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger entries")
	}
	pagination := models.NewPagination(filter.Page, filter.PageSize, total)
	return entries, pagination, nil
}
