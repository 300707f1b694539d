package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/config"
)

type mockThresholdRepo struct {
	overrides []models.LevelThreshold
	err       error
}

func (m *mockThresholdRepo) List(ctx context.Context) ([]models.LevelThreshold, error) {
	return m.overrides, m.err
}

func TestGenerateCurveFirstLevels(t *testing.T) {
	curve := GenerateCurve(50, 8, 99)

	require.Len(t, curve, 99)
	assert.Equal(t, 1, curve[0].Level)
	assert.Equal(t, 0, curve[0].MinLifetimePoints)
	// 50 * 1.08 = 54 -> rounds to 50
	assert.Equal(t, 50, curve[1].MinLifetimePoints)

	for i := 1; i < len(curve); i++ {
		assert.GreaterOrEqual(t, curve[i].MinLifetimePoints, curve[i-1].MinLifetimePoints,
			"curve must be non-decreasing at level %d", curve[i].Level)
	}
}

func TestGenerateCurveRoundsToNearestTen(t *testing.T) {
	curve := GenerateCurve(50, 8, 10)
	for _, threshold := range curve {
		assert.Zero(t, threshold.MinLifetimePoints%10)
	}
}

func TestEffectiveLevelFrom(t *testing.T) {
	thresholds := []models.LevelThreshold{
		{Level: 1, MinLifetimePoints: 0},
		{Level: 2, MinLifetimePoints: 50},
		{Level: 3, MinLifetimePoints: 110},
	}

	assert.Equal(t, 1, EffectiveLevelFrom(thresholds, 0))
	assert.Equal(t, 1, EffectiveLevelFrom(thresholds, 49))
	assert.Equal(t, 2, EffectiveLevelFrom(thresholds, 50))
	assert.Equal(t, 2, EffectiveLevelFrom(thresholds, 109))
	assert.Equal(t, 3, EffectiveLevelFrom(thresholds, 110))
	assert.Equal(t, 3, EffectiveLevelFrom(thresholds, 100000))
}

func TestThresholdsOverrideReplacesGenerated(t *testing.T) {
	repo := &mockThresholdRepo{overrides: []models.LevelThreshold{
		{Level: 1, MinLifetimePoints: 0},
		{Level: 2, MinLifetimePoints: 1000},
	}}
	svc := NewThresholdService(repo, config.EconomyConfig{BaseJump: 50, DifficultyPct: 8, MaxLevel: 99}, nil)

	level, err := svc.EffectiveLevel(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 1, level, "override table replaces the generated curve entirely")

	level, err = svc.EffectiveLevel(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
}

func TestThresholdsGeneratedWhenNoOverride(t *testing.T) {
	svc := NewThresholdService(&mockThresholdRepo{}, config.EconomyConfig{BaseJump: 50, DifficultyPct: 8, MaxLevel: 99}, nil)

	level, err := svc.EffectiveLevel(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
}

func TestNextLevelAt(t *testing.T) {
	repo := &mockThresholdRepo{overrides: []models.LevelThreshold{
		{Level: 1, MinLifetimePoints: 0},
		{Level: 2, MinLifetimePoints: 50},
		{Level: 3, MinLifetimePoints: 110},
	}}
	svc := NewThresholdService(repo, config.EconomyConfig{BaseJump: 50, DifficultyPct: 8, MaxLevel: 99}, nil)

	next, err := svc.NextLevelAt(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, next)

	next, err = svc.NextLevelAt(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 110, next, "top level reports its own threshold")
}
