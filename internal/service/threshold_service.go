package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/config"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type thresholdRepository interface {
	List(ctx context.Context) ([]models.LevelThreshold, error)
}

// ThresholdService maps lifetime points to levels. The curve is generated
// from (base_jump, difficulty_pct) unless an explicit override table exists,
// in which case the override replaces the generated curve entirely.
type ThresholdService struct {
	repo      thresholdRepository
	cache     *CacheService
	generated []models.LevelThreshold
	logger    *zap.Logger
}

// NewThresholdService constructs the service and precomputes the generated
// curve.
func NewThresholdService(repo thresholdRepository, cfg config.EconomyConfig, logger *zap.Logger) *ThresholdService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxLevel := cfg.MaxLevel
	if maxLevel <= 0 || maxLevel > 99 {
		maxLevel = 99
	}
	baseJump := cfg.BaseJump
	if baseJump <= 0 {
		baseJump = 50
	}
	return &ThresholdService{
		repo:      repo,
		generated: GenerateCurve(baseJump, cfg.DifficultyPct, maxLevel),
		logger:    logger,
	}
}

// GenerateCurve builds thresholds for levels 1..maxLevel. Level 1 requires
// zero points; each subsequent level adds base_jump scaled by the compounding
// difficulty percentage, rounded to the nearest 10 and kept non-decreasing.
func GenerateCurve(baseJump int, difficultyPct float64, maxLevel int) []models.LevelThreshold {
	thresholds := make([]models.LevelThreshold, 0, maxLevel)
	thresholds = append(thresholds, models.LevelThreshold{Level: 1, MinLifetimePoints: 0})

	cumulative := 0.0
	prev := 0
	for level := 2; level <= maxLevel; level++ {
		cumulative += float64(baseJump) * math.Pow(1+difficultyPct/100, float64(level-1))
		rounded := int(math.Round(cumulative/10)) * 10
		if rounded < prev {
			rounded = prev
		}
		thresholds = append(thresholds, models.LevelThreshold{Level: level, MinLifetimePoints: rounded})
		prev = rounded
	}
	return thresholds
}

// EffectiveLevelFrom returns the highest defined level whose threshold is
// satisfied by the given lifetime points.
func EffectiveLevelFrom(thresholds []models.LevelThreshold, lifetimePoints int) int {
	level := 1
	for _, t := range thresholds {
		if lifetimePoints >= t.MinLifetimePoints && t.Level > level {
			level = t.Level
		}
	}
	return level
}

// SetCache attaches an optional cache for the override table. The curve
// changes rarely, so stale reads inside the TTL are acceptable.
func (s *ThresholdService) SetCache(cache *CacheService) {
	s.cache = cache
}

const thresholdsCacheKey = "thresholds"

// Thresholds returns the active curve: the override table when present,
// otherwise the generated curve.
func (s *ThresholdService) Thresholds(ctx context.Context) ([]models.LevelThreshold, error) {
	var overrides []models.LevelThreshold
	if hit, _ := s.cache.Get(ctx, thresholdsCacheKey, &overrides); !hit {
		var err error
		overrides, err = s.repo.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load level thresholds")
		}
		_ = s.cache.Set(ctx, thresholdsCacheKey, overrides, 0)
	}
	if len(overrides) > 0 {
		return overrides, nil
	}
	return s.generated, nil
}

// EffectiveLevel computes the level for the given lifetime points.
func (s *ThresholdService) EffectiveLevel(ctx context.Context, lifetimePoints int) (int, error) {
	thresholds, err := s.Thresholds(ctx)
	if err != nil {
		return 0, err
	}
	return EffectiveLevelFrom(thresholds, lifetimePoints), nil
}

// NextLevelAt returns the lifetime points required for the next level, or
// the current level's threshold when the student is already at the top.
func (s *ThresholdService) NextLevelAt(ctx context.Context, level int) (int, error) {
	thresholds, err := s.Thresholds(ctx)
	if err != nil {
		return 0, err
	}
	top := 0
	for _, t := range thresholds {
		if t.Level == level+1 {
			return t.MinLifetimePoints, nil
		}
		if t.MinLifetimePoints > top {
			top = t.MinLifetimePoints
		}
	}
	return top, nil
}
