package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/config"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type awardChallengeRepository interface {
	FindByKey(ctx context.Context, key string) (*models.Challenge, error)
	CountCompletionsSince(ctx context.Context, challengeID, studentID string, since *time.Time) (int, error)
	InsertCompletion(ctx context.Context, completion *models.ChallengeCompletion) error
}

type awardWheelRepository interface {
	ListEnabled(ctx context.Context) ([]models.WheelPrize, error)
}

type awardGiftRepository interface {
	FindByID(ctx context.Context, id string) (*models.Gift, error)
	ConsumeOne(ctx context.Context, id string, expectedRemaining int) (bool, error)
}

type modifierResolver interface {
	Resolve(ctx context.Context, studentID string) (ModifierStack, error)
}

// GrantRequest is a staff-issued point grant.
type GrantRequest struct {
	StudentID  string
	Points     int
	Category   models.PointCategory
	SourceType string
	SourceID   string
	Note       string
	Actor      string
}

// GrantResult is the grant flow response.
type GrantResult struct {
	Entry    *models.LedgerEntry     `json:"entry,omitempty"`
	Snapshot *models.StudentSnapshot `json:"snapshot"`
	Warnings []string                `json:"-"`
}

const giftConsumeAttempts = 3

// AwardService orchestrates the award flows: staff grants, challenge
// completions, prize wheel spins and gift opens. Every flow funnels into the
// ledger service; this layer only decides how many points and whether.
type AwardService struct {
	ledger       snapshotAppender
	modifiers    modifierResolver
	challenges   awardChallengeRepository
	wheel        awardWheelRepository
	gifts        awardGiftRepository
	challengeCfg config.ChallengesConfig
	metrics      *MetricsService
	intn         func(n int) int
	logger       *zap.Logger
}

// NewAwardService constructs the service. intn may be nil; it defaults to
// math/rand.
func NewAwardService(
	ledger snapshotAppender,
	modifiers modifierResolver,
	challenges awardChallengeRepository,
	wheel awardWheelRepository,
	gifts awardGiftRepository,
	cfg config.ChallengesConfig,
	metrics *MetricsService,
	logger *zap.Logger,
) *AwardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AwardService{
		ledger:       ledger,
		modifiers:    modifiers,
		challenges:   challenges,
		wheel:        wheel,
		gifts:        gifts,
		challengeCfg: cfg,
		metrics:      metrics,
		intn:         rand.Intn,
		logger:       logger,
	}
}

// Grant appends a staff-issued entry. Categories subject to the modifier
// stack record their base points and the multiplier applied; when the stack
// zeroes the delta out, nothing is appended and the caller gets the current
// snapshot with a warning.
func (s *AwardService) Grant(ctx context.Context, req GrantRequest) (*GrantResult, error) {
	if req.Points == 0 {
		return nil, appErrors.ErrInvalidAmount
	}
	if req.Category == "" {
		req.Category = models.CategoryManual
	}

	entry := &models.LedgerEntry{
		StudentID: req.StudentID,
		Points:    req.Points,
		Category:  req.Category,
		Note:      req.Note,
		CreatedBy: req.Actor,
	}
	if req.SourceType != "" && req.SourceID != "" {
		entry.SourceType = &req.SourceType
		entry.SourceID = &req.SourceID
	}

	if req.Category.Stacked() {
		stack, err := s.modifiers.Resolve(ctx, req.StudentID)
		if err != nil {
			return nil, err
		}
		multiplier := stack.MultiplierFor(req.Category)
		base := req.Points
		scaled := int(math.Round(float64(base) * multiplier))
		entry.PointsBase = &base
		entry.PointsMultiplier = &multiplier
		entry.Points = scaled

		if scaled == 0 {
			snapshot, err := s.ledger.Snapshot(ctx, req.StudentID)
			if err != nil {
				return nil, err
			}
			s.logger.Info("grant zeroed by modifier stack",
				zap.String("student_id", req.StudentID),
				zap.String("category", string(req.Category)),
				zap.Int("base", base),
				zap.Float64("multiplier", multiplier))
			return &GrantResult{
				Snapshot: snapshot,
				Warnings: []string{"modifier stack reduced the award to zero; no entry recorded"},
			}, nil
		}
	}

	result, err := s.ledger.AppendAndRecompute(ctx, entry)
	if err != nil {
		return nil, err
	}
	return &GrantResult{Entry: result.Entry, Snapshot: result.Snapshot, Warnings: result.Warnings}, nil
}

// tierPoints returns the default award for a challenge tier.
func (s *AwardService) tierPoints(tier models.ChallengeTier) int {
	switch tier {
	case models.TierGold:
		return s.challengeCfg.TierGoldPoints
	case models.TierSilver:
		return s.challengeCfg.TierSilverPoints
	default:
		return s.challengeCfg.TierBronzePoints
	}
}

// repeatWindowStart returns the start of the rolling window for a limit
// mode, or nil for lifetime modes.
func repeatWindowStart(challenge *models.Challenge, now time.Time) *time.Time {
	var start time.Time
	switch challenge.LimitMode {
	case models.RepeatOnce, models.RepeatLifetime:
		return nil
	case models.RepeatDaily:
		start = now.Add(-24 * time.Hour)
	case models.RepeatWeekly:
		start = now.Add(-7 * 24 * time.Hour)
	case models.RepeatMonthly:
		start = now.AddDate(0, -1, 0)
	case models.RepeatYearly:
		start = now.AddDate(-1, 0, 0)
	case models.RepeatCustom:
		days := challenge.WindowDays
		if days <= 0 {
			days = 1
		}
		start = now.Add(-time.Duration(days) * 24 * time.Hour)
	default:
		return nil
	}
	return &start
}

// awardLimit returns the number of paid completions allowed in the window.
func awardLimit(challenge *models.Challenge) int {
	if challenge.LimitMode == models.RepeatOnce {
		return 1
	}
	if challenge.LimitCount <= 0 {
		return 1
	}
	return challenge.LimitCount
}

// CompleteChallenge records a completion and pays out unless a repeat limit
// suppresses the award. The completion row is written either way so streaks
// and history stay truthful.
func (s *AwardService) CompleteChallenge(ctx context.Context, studentID, challengeKey, actor string) (*models.CompletionResult, error) {
	challenge, err := s.challenges.FindByKey(ctx, challengeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load challenge")
	}
	if !challenge.Enabled {
		return nil, appErrors.ErrItemDisabled
	}

	now := time.Now().UTC()
	suppressed := false
	var warnings []string

	since := repeatWindowStart(challenge, now)
	count, err := s.challenges.CountCompletionsSince(ctx, challenge.ID, studentID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completions")
	}
	if count >= awardLimit(challenge) {
		suppressed = true
		warnings = append(warnings, "repeat limit reached; completion recorded without points")
	}

	if !suppressed && challenge.DailyLimit > 0 {
		dayStart := now.Add(-24 * time.Hour)
		dayCount, err := s.challenges.CountCompletionsSince(ctx, challenge.ID, studentID, &dayStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completions")
		}
		if dayCount >= challenge.DailyLimit {
			suppressed = true
			warnings = append(warnings, "daily limit reached; completion recorded without points")
		}
	}

	completion := &models.ChallengeCompletion{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		StudentID:   studentID,
		CompletedAt: now,
	}

	if suppressed {
		if err := s.challenges.InsertCompletion(ctx, completion); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
		}
		s.metrics.RecordSuppressedAward()
		snapshot, err := s.ledger.Snapshot(ctx, studentID)
		if err != nil {
			return nil, err
		}
		return &models.CompletionResult{Completed: true, PointsAwarded: 0, Snapshot: snapshot, Warnings: warnings}, nil
	}

	base := s.tierPoints(challenge.Tier)
	if challenge.PointsOverride != nil {
		base = *challenge.PointsOverride
	}

	stack, err := s.modifiers.Resolve(ctx, studentID)
	if err != nil {
		return nil, err
	}
	points := int(math.Round(float64(base) * (1 + stack.ChallengeBonusPct/100)))
	if points < 0 {
		points = 0
	}
	completion.PointsAwarded = points

	if err := s.challenges.InsertCompletion(ctx, completion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}

	result := &models.CompletionResult{Completed: true, PointsAwarded: points}
	if points == 0 {
		snapshot, err := s.ledger.Snapshot(ctx, studentID)
		if err != nil {
			return nil, err
		}
		result.Snapshot = snapshot
		return result, nil
	}

	sourceType := "challenge_completion"
	appendResult, err := s.ledger.AppendAndRecompute(ctx, &models.LedgerEntry{
		StudentID:  studentID,
		Points:     points,
		Category:   models.CategoryChallenge,
		SourceType: &sourceType,
		SourceID:   &completion.ID,
		Note:       fmt.Sprintf("challenge %q completed", challenge.Key),
		CreatedBy:  actor,
	})
	if err != nil {
		return nil, err
	}
	result.Snapshot = appendResult.Snapshot
	return result, nil
}

// SpinWheel picks a weighted prize and credits it.
func (s *AwardService) SpinWheel(ctx context.Context, studentID, actor string) (*models.SpinResult, error) {
	prizes, err := s.wheel.ListEnabled(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wheel prizes")
	}
	if len(prizes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prize wheel has no enabled prizes")
	}

	total := 0
	for _, p := range prizes {
		if p.Weight > 0 {
			total += p.Weight
		}
	}
	if total <= 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prize wheel weights are not configured")
	}

	roll := s.intn(total)
	var prize models.WheelPrize
	for _, p := range prizes {
		if p.Weight <= 0 {
			continue
		}
		if roll < p.Weight {
			prize = p
			break
		}
		roll -= p.Weight
	}

	spinID := uuid.NewString()
	result := &models.SpinResult{SpinID: spinID, Prize: prize}

	if prize.Points == 0 {
		snapshot, err := s.ledger.Snapshot(ctx, studentID)
		if err != nil {
			return nil, err
		}
		result.Snapshot = snapshot
		return result, nil
	}

	sourceType := "wheel_spin"
	appendResult, err := s.ledger.AppendAndRecompute(ctx, &models.LedgerEntry{
		StudentID:  studentID,
		Points:     prize.Points,
		Category:   models.CategoryPrizeWheel,
		SourceType: &sourceType,
		SourceID:   &spinID,
		Note:       fmt.Sprintf("prize wheel: %s", prize.Label),
		CreatedBy:  actor,
	})
	if err != nil {
		return nil, err
	}
	result.Snapshot = appendResult.Snapshot
	return result, nil
}

// OpenGift consumes one unit of a shared gift pool and credits its points.
// The conditional decrement retries a few times under contention; losing
// every race surfaces as a conflict the client may retry.
func (s *AwardService) OpenGift(ctx context.Context, studentID, giftID, actor string) (*models.GiftOpenResult, error) {
	for attempt := 0; attempt < giftConsumeAttempts; attempt++ {
		gift, err := s.gifts.FindByID(ctx, giftID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gift")
		}
		if !gift.Enabled {
			return nil, appErrors.ErrItemDisabled
		}
		if gift.ExpiresAt != nil && gift.ExpiresAt.Before(time.Now().UTC()) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "gift has expired")
		}
		if gift.Remaining <= 0 {
			return nil, appErrors.ErrGiftExhausted
		}

		consumed, err := s.gifts.ConsumeOne(ctx, giftID, gift.Remaining)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume gift")
		}
		if !consumed {
			continue
		}

		openID := uuid.NewString()
		sourceType := "gift_open"
		appendResult, err := s.ledger.AppendAndRecompute(ctx, &models.LedgerEntry{
			StudentID:  studentID,
			Points:     gift.Points,
			Category:   models.CategoryGift,
			SourceType: &sourceType,
			SourceID:   &openID,
			Note:       fmt.Sprintf("opened gift: %s", gift.Label),
			CreatedBy:  actor,
		})
		if err != nil {
			return nil, err
		}
		return &models.GiftOpenResult{
			OpenID:   openID,
			GiftID:   giftID,
			Points:   gift.Points,
			Snapshot: appendResult.Snapshot,
		}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "gift is contended, retry")
}
