package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type memLedgerRepo struct {
	entries   []models.LedgerEntry
	aggErr    error
	insertErr error
}

func (m *memLedgerRepo) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if entry.SourceType != nil && entry.SourceID != nil {
		for _, existing := range m.entries {
			if existing.SourceType != nil && existing.SourceID != nil &&
				*existing.SourceType == *entry.SourceType && *existing.SourceID == *entry.SourceID {
				return &pq.Error{Code: pq.ErrorCode("23505")}
			}
		}
	}
	if entry.ID == "" {
		entry.ID = "entry-" + time.Now().Format("150405.000000000")
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memLedgerRepo) FindBySource(ctx context.Context, sourceType, sourceID string) (*models.LedgerEntry, error) {
	for i := range m.entries {
		e := m.entries[i]
		if e.SourceType != nil && e.SourceID != nil && *e.SourceType == sourceType && *e.SourceID == sourceID {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memLedgerRepo) Aggregates(ctx context.Context, studentID string) (models.LedgerAggregates, error) {
	if m.aggErr != nil {
		return models.LedgerAggregates{}, m.aggErr
	}
	var agg models.LedgerAggregates
	for _, e := range m.entries {
		if e.StudentID != studentID {
			continue
		}
		agg.Balance += e.Points
		if e.Points > 0 {
			agg.Lifetime += e.Points
		}
	}
	return agg, nil
}

func (m *memLedgerRepo) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error) {
	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.StudentID == filter.StudentID {
			result = append(result, e)
		}
	}
	return result, len(result), nil
}

type memStudentRepo struct {
	students     map[string]*models.Student
	deltaApplied []int
}

func (m *memStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStudentRepo) UpdateAggregates(ctx context.Context, id string, balance, lifetime, level int) error {
	s := m.students[id]
	s.PointsBalance = balance
	s.LifetimePoints = lifetime
	s.Level = level
	return nil
}

func (m *memStudentRepo) ApplyDelta(ctx context.Context, id string, delta int) error {
	m.deltaApplied = append(m.deltaApplied, delta)
	s := m.students[id]
	s.PointsBalance += delta
	if delta > 0 {
		s.LifetimePoints += delta
	}
	return nil
}

type fixedLevels struct{}

var testThresholds = []models.LevelThreshold{
	{Level: 1, MinLifetimePoints: 0},
	{Level: 2, MinLifetimePoints: 50},
	{Level: 3, MinLifetimePoints: 110},
}

func (fixedLevels) EffectiveLevel(ctx context.Context, lifetimePoints int) (int, error) {
	return EffectiveLevelFrom(testThresholds, lifetimePoints), nil
}

func (fixedLevels) NextLevelAt(ctx context.Context, level int) (int, error) {
	for _, t := range testThresholds {
		if t.Level == level+1 {
			return t.MinLifetimePoints, nil
		}
	}
	return 110, nil
}

type memLeaderboard struct {
	scores map[string]int
}

func (m *memLeaderboard) LeaderboardSet(ctx context.Context, studentID string, lifetimePoints int) error {
	if m.scores == nil {
		m.scores = make(map[string]int)
	}
	m.scores[studentID] = lifetimePoints
	return nil
}

func newTestLedgerService(ledger *memLedgerRepo, students *memStudentRepo) (*LedgerService, *memLeaderboard) {
	board := &memLeaderboard{}
	svc := NewLedgerService(ledger, students, fixedLevels{}, board, nil, nil, time.Minute, nil)
	return svc, board
}

func strPtr(s string) *string { return &s }

func TestAppendRejectsZeroDelta(t *testing.T) {
	svc, _ := newTestLedgerService(&memLedgerRepo{}, &memStudentRepo{})
	_, _, err := svc.Append(context.Background(), &models.LedgerEntry{StudentID: "s1", Points: 0})
	assert.ErrorIs(t, err, appErrors.ErrInvalidAmount)
}

func TestAppendUnknownStudent(t *testing.T) {
	svc, _ := newTestLedgerService(&memLedgerRepo{}, &memStudentRepo{students: map[string]*models.Student{}})
	_, _, err := svc.Append(context.Background(), &models.LedgerEntry{StudentID: "ghost", Points: 10})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAppendAndRecompute(t *testing.T) {
	ledger := &memLedgerRepo{}
	students := &memStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", FullName: "Mika", Level: 1},
	}}
	svc, board := newTestLedgerService(ledger, students)

	result, err := svc.AppendAndRecompute(context.Background(), &models.LedgerEntry{
		StudentID: "s1", Points: 60, Category: models.CategoryManual, CreatedBy: "staff",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 60, result.Snapshot.PointsBalance)
	assert.Equal(t, 60, result.Snapshot.LifetimePoints)
	assert.Equal(t, 2, result.Snapshot.Level)
	assert.Equal(t, 110, result.Snapshot.NextLevelAt)
	assert.Equal(t, 60, board.scores["s1"])
}

func TestNegativeEntriesReduceBalanceNotLifetime(t *testing.T) {
	ledger := &memLedgerRepo{}
	students := &memStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Level: 1},
	}}
	svc, _ := newTestLedgerService(ledger, students)

	_, err := svc.AppendAndRecompute(context.Background(), &models.LedgerEntry{StudentID: "s1", Points: 60, Category: models.CategoryManual})
	require.NoError(t, err)
	result, err := svc.AppendAndRecompute(context.Background(), &models.LedgerEntry{StudentID: "s1", Points: -40, Category: models.CategoryRuleBreaker})
	require.NoError(t, err)

	assert.Equal(t, 20, result.Snapshot.PointsBalance)
	assert.Equal(t, 60, result.Snapshot.LifetimePoints, "lifetime only counts positive entries")
	assert.Equal(t, 2, result.Snapshot.Level)
}

func TestAppendDuplicateSourceAbsorbed(t *testing.T) {
	ledger := &memLedgerRepo{}
	students := &memStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Level: 1},
	}}
	svc, _ := newTestLedgerService(ledger, students)

	first := &models.LedgerEntry{
		StudentID: "s1", Points: 25, Category: models.CategoryChallenge,
		SourceType: strPtr("challenge_completion"), SourceID: strPtr("c-1"),
	}
	_, err := svc.AppendAndRecompute(context.Background(), first)
	require.NoError(t, err)

	retry := &models.LedgerEntry{
		StudentID: "s1", Points: 25, Category: models.CategoryChallenge,
		SourceType: strPtr("challenge_completion"), SourceID: strPtr("c-1"),
	}
	result, err := svc.AppendAndRecompute(context.Background(), retry)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Len(t, ledger.entries, 1, "retried grant must not double-append")
	assert.Equal(t, 25, result.Snapshot.PointsBalance)
}

func TestAppendAndRecomputeFallsBackOnRecomputeFailure(t *testing.T) {
	ledger := &memLedgerRepo{aggErr: errors.New("aggregate query timed out")}
	students := &memStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", PointsBalance: 10, LifetimePoints: 10, Level: 1},
	}}
	svc, _ := newTestLedgerService(ledger, students)

	result, err := svc.AppendAndRecompute(context.Background(), &models.LedgerEntry{
		StudentID: "s1", Points: 30, Category: models.CategoryManual,
	})
	require.NoError(t, err, "ledger write must never be rolled back by recompute failure")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, []int{30}, students.deltaApplied)
	assert.Equal(t, 40, result.Snapshot.PointsBalance)
	assert.Equal(t, 40, result.Snapshot.LifetimePoints)
	assert.Len(t, ledger.entries, 1)
}

func TestRecomputeInvokesLevelUpCallback(t *testing.T) {
	ledger := &memLedgerRepo{}
	students := &memStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", Level: 1},
	}}
	svc, _ := newTestLedgerService(ledger, students)

	var gotFrom, gotTo int
	svc.SetLevelUpFunc(func(studentID string, fromLevel, toLevel int) {
		gotFrom, gotTo = fromLevel, toLevel
	})

	_, err := svc.AppendAndRecompute(context.Background(), &models.LedgerEntry{StudentID: "s1", Points: 120, Category: models.CategoryManual})
	require.NoError(t, err)
	assert.Equal(t, 1, gotFrom)
	assert.Equal(t, 3, gotTo)
}

func TestSnapshotComputesLevelFromLifetime(t *testing.T) {
	students := &memStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", FullName: "Mika", PointsBalance: 20, LifetimePoints: 110, Level: 1},
	}}
	svc, _ := newTestLedgerService(&memLedgerRepo{}, students)

	snapshot, err := svc.Snapshot(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.Level, "stored level column is a cache, never trusted on read")
}
