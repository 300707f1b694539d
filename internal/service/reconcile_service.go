package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/config"
)

type reconcileLedgerRepository interface {
	ActiveStudentIDs(ctx context.Context, since time.Time, limit int) ([]string, error)
}

type recomputer interface {
	Recompute(ctx context.Context, studentID string) (*models.StudentSnapshot, error)
}

// ReconcileService periodically re-runs the authoritative recompute over
// recently active students. It repairs any drift left behind by the
// incremental fallback path.
type ReconcileService struct {
	ledger    reconcileLedgerRepository
	recompute recomputer
	cfg       config.ReconcileConfig
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// NewReconcileService constructs the service.
func NewReconcileService(ledger reconcileLedgerRepository, recompute recomputer, cfg config.ReconcileConfig, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 2 * cfg.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &ReconcileService{ledger: ledger, recompute: recompute, cfg: cfg, logger: logger}
}

// Start schedules the sweep. No-op when disabled.
func (s *ReconcileService) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("reconcile sweep disabled")
		return nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.Interval)
			defer cancel()
			s.Sweep(sweepCtx)
		}),
	)
	if err != nil {
		return err
	}
	s.scheduler = scheduler
	scheduler.Start()
	s.logger.Info("reconcile sweep scheduled",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("lookback", s.cfg.Lookback))
	return nil
}

// Stop shuts the scheduler down.
func (s *ReconcileService) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// Sweep recomputes aggregates for students with recent ledger activity.
// Failures on individual students are logged and skipped so one bad row
// cannot stall the whole sweep.
func (s *ReconcileService) Sweep(ctx context.Context) {
	since := time.Now().UTC().Add(-s.cfg.Lookback)
	ids, err := s.ledger.ActiveStudentIDs(ctx, since, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("reconcile sweep failed to list students", zap.Error(err))
		return
	}
	repaired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			s.logger.Warn("reconcile sweep interrupted", zap.Int("repaired", repaired))
			return
		}
		if _, err := s.recompute.Recompute(ctx, id); err != nil {
			s.logger.Warn("reconcile recompute failed", zap.String("student_id", id), zap.Error(err))
			continue
		}
		repaired++
	}
	s.logger.Info("reconcile sweep finished", zap.Int("students", len(ids)), zap.Int("repaired", repaired))
}
