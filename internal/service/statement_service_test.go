package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type fakeStatementLedger struct {
	snapshot models.StudentSnapshot
	entries  []models.LedgerEntry
}

func (f *fakeStatementLedger) Snapshot(ctx context.Context, studentID string) (*models.StudentSnapshot, error) {
	copied := f.snapshot
	return &copied, nil
}

func (f *fakeStatementLedger) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, *models.Pagination, error) {
	return f.entries, models.NewPagination(filter.Page, filter.PageSize, len(f.entries)), nil
}

func TestStatementRenderCSV(t *testing.T) {
	ledger := &fakeStatementLedger{
		snapshot: models.StudentSnapshot{StudentID: "s1", FullName: "Mika", PointsBalance: 35, LifetimePoints: 75, Level: 2},
		entries: []models.LedgerEntry{
			{Points: 50, Category: models.CategoryChallenge, Note: "kata drill", CreatedBy: "staff", CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
			{Points: -15, Category: models.CategoryUnlockAvatar, Note: "unlocked avatar", CreatedBy: "staff", CreatedAt: time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)},
		},
	}
	svc := NewStatementService(ledger, 100, nil)

	statement, err := svc.Render(context.Background(), models.LedgerFilter{StudentID: "s1"}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", statement.ContentType)
	assert.True(t, bytes.Contains(statement.Body, []byte("kata drill")))
	assert.True(t, bytes.Contains(statement.Body, []byte("TOTAL")), "summary footer row present")
	assert.True(t, bytes.Contains(statement.Body, []byte("35")))
}

func TestStatementRenderPDF(t *testing.T) {
	ledger := &fakeStatementLedger{
		snapshot: models.StudentSnapshot{StudentID: "s1", FullName: "Mika", PointsBalance: 35},
	}
	svc := NewStatementService(ledger, 100, nil)

	statement, err := svc.Render(context.Background(), models.LedgerFilter{StudentID: "s1"}, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", statement.ContentType)
	assert.True(t, bytes.HasPrefix(statement.Body, []byte("%PDF")))
}

func TestStatementRejectsUnknownFormat(t *testing.T) {
	svc := NewStatementService(&fakeStatementLedger{}, 100, nil)
	_, err := svc.Render(context.Background(), models.LedgerFilter{StudentID: "s1"}, StatementFormat("xlsx"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
