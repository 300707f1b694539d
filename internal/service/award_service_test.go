package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/config"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

type fakeModifiers struct {
	stack ModifierStack
}

func (f *fakeModifiers) Resolve(ctx context.Context, studentID string) (ModifierStack, error) {
	return f.stack, nil
}

type fakeChallenges struct {
	challenge     *models.Challenge
	lifetimeCount int
	windowCount   int
	completions   []models.ChallengeCompletion
}

func (f *fakeChallenges) FindByKey(ctx context.Context, key string) (*models.Challenge, error) {
	if f.challenge == nil || f.challenge.Key != key {
		return nil, sql.ErrNoRows
	}
	copied := *f.challenge
	return &copied, nil
}

func (f *fakeChallenges) CountCompletionsSince(ctx context.Context, challengeID, studentID string, since *time.Time) (int, error) {
	if since == nil {
		return f.lifetimeCount, nil
	}
	return f.windowCount, nil
}

func (f *fakeChallenges) InsertCompletion(ctx context.Context, completion *models.ChallengeCompletion) error {
	f.completions = append(f.completions, *completion)
	return nil
}

type fakeWheel struct {
	prizes []models.WheelPrize
}

func (f *fakeWheel) ListEnabled(ctx context.Context) ([]models.WheelPrize, error) {
	return f.prizes, nil
}

type fakeGifts struct {
	gift         *models.Gift
	consumeOK    bool
	consumeCalls int
}

func (f *fakeGifts) FindByID(ctx context.Context, id string) (*models.Gift, error) {
	if f.gift == nil || f.gift.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *f.gift
	return &copied, nil
}

func (f *fakeGifts) ConsumeOne(ctx context.Context, id string, expectedRemaining int) (bool, error) {
	f.consumeCalls++
	if f.consumeOK {
		f.gift.Remaining--
		return true, nil
	}
	return false, nil
}

func newAwardFixture(stack ModifierStack) (*AwardService, *fakeAppender, *fakeChallenges, *fakeWheel, *fakeGifts) {
	appender := &fakeAppender{}
	challenges := &fakeChallenges{}
	wheel := &fakeWheel{}
	gifts := &fakeGifts{}
	cfg := config.ChallengesConfig{TierBronzePoints: 10, TierSilverPoints: 25, TierGoldPoints: 50}
	svc := NewAwardService(appender, &fakeModifiers{stack: stack}, challenges, wheel, gifts, cfg, nil, nil)
	return svc, appender, challenges, wheel, gifts
}

func TestGrantAppliesModifierStack(t *testing.T) {
	svc, appender, _, _, _ := newAwardFixture(ModifierStack{RuleKeeper: 1.5, RuleBreaker: 1, Spotlight: 1})

	result, err := svc.Grant(context.Background(), GrantRequest{
		StudentID: "s1", Points: 10, Category: models.CategoryRuleKeeper, Actor: "staff-1",
	})
	require.NoError(t, err)
	require.Len(t, appender.entries, 1)
	entry := appender.entries[0]
	assert.Equal(t, 15, entry.Points)
	require.NotNil(t, entry.PointsBase)
	assert.Equal(t, 10, *entry.PointsBase)
	require.NotNil(t, entry.PointsMultiplier)
	assert.InDelta(t, 1.5, *entry.PointsMultiplier, 0.0001)
	assert.Equal(t, 15, result.Snapshot.PointsBalance)
}

func TestGrantZeroedByStackReturnsWarning(t *testing.T) {
	svc, appender, _, _, _ := newAwardFixture(ModifierStack{RuleKeeper: 1, RuleBreaker: 0, Spotlight: 1})

	result, err := svc.Grant(context.Background(), GrantRequest{
		StudentID: "s1", Points: -10, Category: models.CategoryRuleBreaker, Actor: "staff-1",
	})
	require.NoError(t, err)
	assert.Empty(t, appender.entries, "zeroed grant must not append")
	assert.Nil(t, result.Entry)
	require.Len(t, result.Warnings, 1)
}

func TestGrantUnstackedCategoryIgnoresStack(t *testing.T) {
	svc, appender, _, _, _ := newAwardFixture(ModifierStack{RuleKeeper: 3, RuleBreaker: 3, Spotlight: 3})

	_, err := svc.Grant(context.Background(), GrantRequest{
		StudentID: "s1", Points: 10, Category: models.CategoryManual, Actor: "staff-1",
	})
	require.NoError(t, err)
	require.Len(t, appender.entries, 1)
	assert.Equal(t, 10, appender.entries[0].Points)
	assert.Nil(t, appender.entries[0].PointsBase)
}

func TestGrantRejectsZero(t *testing.T) {
	svc, _, _, _, _ := newAwardFixture(ModifierStack{})
	_, err := svc.Grant(context.Background(), GrantRequest{StudentID: "s1", Points: 0})
	assert.ErrorIs(t, err, appErrors.ErrInvalidAmount)
}

func TestCompleteChallengePaysTierWithBonus(t *testing.T) {
	svc, appender, challenges, _, _ := newAwardFixture(ModifierStack{ChallengeBonusPct: 20})
	challenges.challenge = &models.Challenge{
		ID: "ch-1", Key: "kata-drill", Tier: models.TierSilver,
		LimitMode: models.RepeatDaily, LimitCount: 3, Enabled: true,
	}

	result, err := svc.CompleteChallenge(context.Background(), "s1", "kata-drill", "staff-1")
	require.NoError(t, err)
	assert.True(t, result.Completed)
	// 25 silver * 1.20 = 30
	assert.Equal(t, 30, result.PointsAwarded)
	require.Len(t, challenges.completions, 1)
	assert.Equal(t, 30, challenges.completions[0].PointsAwarded)
	require.Len(t, appender.entries, 1)
	assert.Equal(t, models.CategoryChallenge, appender.entries[0].Category)
	require.NotNil(t, appender.entries[0].SourceID)
	assert.Equal(t, challenges.completions[0].ID, *appender.entries[0].SourceID)
}

func TestCompleteChallengePointsOverride(t *testing.T) {
	svc, appender, challenges, _, _ := newAwardFixture(ModifierStack{})
	challenges.challenge = &models.Challenge{
		ID: "ch-1", Key: "belt-test", Tier: models.TierGold, PointsOverride: intPtr(75),
		LimitMode: models.RepeatLifetime, LimitCount: 1, Enabled: true,
	}

	result, err := svc.CompleteChallenge(context.Background(), "s1", "belt-test", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, 75, result.PointsAwarded)
	assert.Equal(t, 75, appender.entries[0].Points)
}

func TestCompleteChallengeSuppressedByRepeatLimit(t *testing.T) {
	svc, appender, challenges, _, _ := newAwardFixture(ModifierStack{})
	challenges.challenge = &models.Challenge{
		ID: "ch-1", Key: "kata-drill", Tier: models.TierBronze,
		LimitMode: models.RepeatOnce, Enabled: true,
	}
	challenges.lifetimeCount = 1

	result, err := svc.CompleteChallenge(context.Background(), "s1", "kata-drill", "staff-1")
	require.NoError(t, err)
	assert.True(t, result.Completed, "suppressed completions still succeed")
	assert.Zero(t, result.PointsAwarded)
	require.Len(t, result.Warnings, 1, "suppression must surface a warning")
	assert.Contains(t, result.Warnings[0], "repeat limit")
	assert.Empty(t, appender.entries, "suppressed completion must not pay")
	require.Len(t, challenges.completions, 1, "completion recorded even when suppressed")
	assert.Zero(t, challenges.completions[0].PointsAwarded)
}

func TestCompleteChallengeSecondaryDailyLimit(t *testing.T) {
	svc, appender, challenges, _, _ := newAwardFixture(ModifierStack{})
	challenges.challenge = &models.Challenge{
		ID: "ch-1", Key: "kata-drill", Tier: models.TierBronze,
		LimitMode: models.RepeatWeekly, LimitCount: 10, DailyLimit: 2, Enabled: true,
	}
	challenges.windowCount = 2

	result, err := svc.CompleteChallenge(context.Background(), "s1", "kata-drill", "staff-1")
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "daily limit")
	assert.Empty(t, appender.entries)
}

func TestCompleteChallengeDisabled(t *testing.T) {
	svc, _, challenges, _, _ := newAwardFixture(ModifierStack{})
	challenges.challenge = &models.Challenge{ID: "ch-1", Key: "kata-drill", Enabled: false}

	_, err := svc.CompleteChallenge(context.Background(), "s1", "kata-drill", "staff-1")
	assert.ErrorIs(t, err, appErrors.ErrItemDisabled)
}

func TestCompleteChallengeUnknownKey(t *testing.T) {
	svc, _, _, _, _ := newAwardFixture(ModifierStack{})
	_, err := svc.CompleteChallenge(context.Background(), "s1", "missing", "staff-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSpinWheelWeightedPick(t *testing.T) {
	svc, appender, _, wheel, _ := newAwardFixture(ModifierStack{})
	wheel.prizes = []models.WheelPrize{
		{ID: "p1", Label: "Nothing", Points: 0, Weight: 5, Enabled: true},
		{ID: "p2", Label: "Jackpot", Points: 100, Weight: 1, Enabled: true},
	}
	svc.intn = func(n int) int { return 5 } // lands past the first segment

	result, err := svc.SpinWheel(context.Background(), "s1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "p2", result.Prize.ID)
	require.Len(t, appender.entries, 1)
	assert.Equal(t, 100, appender.entries[0].Points)
	assert.Equal(t, models.CategoryPrizeWheel, appender.entries[0].Category)
}

func TestSpinWheelZeroPrizeSkipsLedger(t *testing.T) {
	svc, appender, _, wheel, _ := newAwardFixture(ModifierStack{})
	wheel.prizes = []models.WheelPrize{
		{ID: "p1", Label: "Nothing", Points: 0, Weight: 5, Enabled: true},
	}
	svc.intn = func(n int) int { return 0 }

	result, err := svc.SpinWheel(context.Background(), "s1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", result.Prize.ID)
	assert.Empty(t, appender.entries)
	require.NotNil(t, result.Snapshot)
}

func TestOpenGiftCreditsPoints(t *testing.T) {
	svc, appender, _, _, gifts := newAwardFixture(ModifierStack{})
	gifts.gift = &models.Gift{ID: "g1", Label: "Summer pack", Points: 40, Remaining: 3, Enabled: true}
	gifts.consumeOK = true

	result, err := svc.OpenGift(context.Background(), "s1", "g1", "staff-1")
	require.NoError(t, err)
	assert.Equal(t, 40, result.Points)
	assert.Equal(t, 2, gifts.gift.Remaining)
	require.Len(t, appender.entries, 1)
	assert.Equal(t, models.CategoryGift, appender.entries[0].Category)
}

func TestOpenGiftExhausted(t *testing.T) {
	svc, _, _, _, gifts := newAwardFixture(ModifierStack{})
	gifts.gift = &models.Gift{ID: "g1", Points: 40, Remaining: 0, Enabled: true}

	_, err := svc.OpenGift(context.Background(), "s1", "g1", "staff-1")
	assert.ErrorIs(t, err, appErrors.ErrGiftExhausted)
}

func TestOpenGiftContentionGivesUp(t *testing.T) {
	svc, appender, _, _, gifts := newAwardFixture(ModifierStack{})
	gifts.gift = &models.Gift{ID: "g1", Points: 40, Remaining: 3, Enabled: true}
	gifts.consumeOK = false

	_, err := svc.OpenGift(context.Background(), "s1", "g1", "staff-1")
	require.Error(t, err)
	assert.Equal(t, giftConsumeAttempts, gifts.consumeCalls)
	assert.Empty(t, appender.entries)
}
