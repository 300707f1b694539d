package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dojoclub/points-api/internal/models"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation. Idempotent grant paths treat it as "already
// recorded".
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// LedgerRepository manages the append-only point transaction log.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs a new repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert appends one ledger entry. Entries are never updated or deleted;
// corrections are compensating entries.
func (r *LedgerRepository) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO ledger_entries (id, student_id, points, points_base, points_multiplier, category, source_type, source_id, note, created_by, created_at)
VALUES (:id, :student_id, :points, :points_base, :points_multiplier, :category, :source_type, :source_id, :note, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// FindBySource returns the entry recorded for an external grant source, if
// any. Both values must be non-empty.
func (r *LedgerRepository) FindBySource(ctx context.Context, sourceType, sourceID string) (*models.LedgerEntry, error) {
	query := `SELECT id, student_id, points, points_base, points_multiplier, category, source_type, source_id, note, created_by, created_at
FROM ledger_entries WHERE source_type = $1 AND source_id = $2`
	var entry models.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, sourceType, sourceID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Aggregates derives the authoritative balance and lifetime sums from the
// full ledger for one student.
func (r *LedgerRepository) Aggregates(ctx context.Context, studentID string) (models.LedgerAggregates, error) {
	query := `SELECT COALESCE(SUM(points), 0) AS balance,
COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0) AS lifetime
FROM ledger_entries WHERE student_id = $1`
	var agg models.LedgerAggregates
	if err := r.db.GetContext(ctx, &agg, query, studentID); err != nil {
		return agg, fmt.Errorf("ledger aggregates: %w", err)
	}
	return agg, nil
}

// List returns ledger entries per provided filter, newest first.
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error) {
	base := "FROM ledger_entries"
	where := []string{"student_id = $1"}
	args := []interface{}{filter.StudentID}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, student_id, points, points_base, points_multiplier, category, source_type, source_id, note, created_by, created_at
%s WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return entries, total, nil
}

// ActiveStudentIDs returns students with ledger activity since the given
// time, for reconciliation sweeps.
func (r *LedgerRepository) ActiveStudentIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`SELECT DISTINCT student_id FROM ledger_entries WHERE created_at >= $1 LIMIT %d`, limit)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, since); err != nil {
		return nil, fmt.Errorf("active student ids: %w", err)
	}
	return ids, nil
}
