package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoclub/points-api/internal/models"
)

func newLedgerMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLedgerRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.LedgerEntry{StudentID: "s1", Points: 25, Category: models.CategoryManual, Note: "spar win", CreatedBy: "staff"}
	err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID, "insert assigns an id")
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryInsertPassesThroughUniqueViolation(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	pqErr := &pq.Error{Code: pq.ErrorCode("23505")}
	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnError(pqErr)

	err := repo.Insert(context.Background(), &models.LedgerEntry{StudentID: "s1", Points: 25, Category: models.CategoryManual})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "violation must stay recognisable for idempotent callers")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: pq.ErrorCode("23505")}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: pq.ErrorCode("23503")}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestLedgerRepositoryAggregates(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(points), 0) AS balance,\nCOALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0) AS lifetime\nFROM ledger_entries WHERE student_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "lifetime"}).AddRow(35, 75))

	agg, err := repo.Aggregates(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 35, agg.Balance)
	assert.Equal(t, 75, agg.Lifetime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryFindBySource(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	cols := []string{"id", "student_id", "points", "points_base", "points_multiplier", "category", "source_type", "source_id", "note", "created_by", "created_at"}
	mock.ExpectQuery("FROM ledger_entries WHERE source_type = \\$1 AND source_id = \\$2").
		WithArgs("challenge_completion", "c-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", "s1", 25, nil, nil, "challenge", "challenge_completion", "c-1", "", "staff", time.Now()))

	entry, err := repo.FindBySource(context.Background(), "challenge_completion", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "e1", entry.ID)
	assert.Equal(t, 25, entry.Points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryList(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	cols := []string{"id", "student_id", "points", "points_base", "points_multiplier", "category", "source_type", "source_id", "note", "created_by", "created_at"}
	mock.ExpectQuery("FROM ledger_entries WHERE student_id = \\$1 AND category = \\$2 ORDER BY created_at DESC").
		WithArgs("s1", models.CategoryChallenge).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", "s1", 25, nil, nil, "challenge", nil, nil, "", "staff", time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ledger_entries WHERE student_id = \\$1 AND category = \\$2").
		WithArgs("s1", models.CategoryChallenge).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.LedgerFilter{StudentID: "s1", Category: models.CategoryChallenge, Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
