package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGiftMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGiftRepositoryConsumeOne(t *testing.T) {
	db, mock, cleanup := newGiftMock(t)
	defer cleanup()
	repo := NewGiftRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gifts SET remaining = remaining - 1 WHERE id = $1 AND remaining = $2 AND remaining > 0")).
		WithArgs("g1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	consumed, err := repo.ConsumeOne(context.Background(), "g1", 3)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGiftRepositoryConsumeOneLosesRace(t *testing.T) {
	db, mock, cleanup := newGiftMock(t)
	defer cleanup()
	repo := NewGiftRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gifts SET remaining = remaining - 1 WHERE id = $1 AND remaining = $2 AND remaining > 0")).
		WithArgs("g1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	consumed, err := repo.ConsumeOne(context.Background(), "g1", 3)
	require.NoError(t, err)
	assert.False(t, consumed, "stale expected value must not consume")
	assert.NoError(t, mock.ExpectationsWereMet())
}
