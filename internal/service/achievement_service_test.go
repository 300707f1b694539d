package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
	"github.com/dojoclub/points-api/pkg/jobs"
)

type memCriteria struct {
	criteria     []models.UnlockCriterion
	fulfillments []models.StudentCriterionFulfillment
}

func (m *memCriteria) ListByKind(ctx context.Context, kind models.CriterionKind) ([]models.UnlockCriterion, error) {
	var result []models.UnlockCriterion
	for _, c := range m.criteria {
		if c.Kind == kind {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *memCriteria) InsertFulfillment(ctx context.Context, f *models.StudentCriterionFulfillment) error {
	m.fulfillments = append(m.fulfillments, *f)
	return nil
}

func TestFulfillLevelCriteria(t *testing.T) {
	criteria := &memCriteria{criteria: []models.UnlockCriterion{
		{ID: "c1", Key: "reach-5", Kind: models.CriterionReachLevel, Threshold: 5},
		{ID: "c2", Key: "reach-10", Kind: models.CriterionReachLevel, Threshold: 10},
		{ID: "c3", Key: "tournament", Kind: models.CriterionEvent},
	}}
	svc := NewAchievementService(criteria, nil, jobs.QueueConfig{})

	err := svc.fulfillLevelCriteria(context.Background(), "s1", 7)
	require.NoError(t, err)
	require.Len(t, criteria.fulfillments, 1, "only reach_level criteria at or below the new level fulfill")
	assert.Equal(t, "c1", criteria.fulfillments[0].CriterionID)
	assert.Equal(t, "s1", criteria.fulfillments[0].StudentID)
}
