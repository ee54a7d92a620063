package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/afadil/wealthfolio-sub004/internal/quotes"
)

const sqliteDateLayout = "2006-01-02"

// QuoteSyncStateRepository persists per-symbol quote sync bookkeeping.
type QuoteSyncStateRepository struct {
	*BaseRepository
}

// NewQuoteSyncStateRepository builds a repository backed by db.
func NewQuoteSyncStateRepository(db *sql.DB, log zerolog.Logger) *QuoteSyncStateRepository {
	return &QuoteSyncStateRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "quote_sync_state").Logger()),
	}
}

func (r *QuoteSyncStateRepository) Get(ctx context.Context, symbol string) (*quotes.SyncState, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	row := r.DB().QueryRowContext(ctx, `
		SELECT symbol, is_active, first_activity_date, last_activity_date, position_closed_date,
		       last_synced_at, last_quote_date, earliest_quote_date, data_source, sync_priority,
		       error_count, last_error, created_at, updated_at
		FROM quote_sync_states WHERE symbol = ?`, symbol)

	s, err := scanSyncState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query quote sync state %s: %w", symbol, err)
	}
	return s, nil
}

func (r *QuoteSyncStateRepository) ListAll(ctx context.Context) ([]*quotes.SyncState, error) {
	return r.list(ctx, `
		SELECT symbol, is_active, first_activity_date, last_activity_date, position_closed_date,
		       last_synced_at, last_quote_date, earliest_quote_date, data_source, sync_priority,
		       error_count, last_error, created_at, updated_at
		FROM quote_sync_states`)
}

func (r *QuoteSyncStateRepository) ListBySource(ctx context.Context, dataSource string) ([]*quotes.SyncState, error) {
	return r.list(ctx, `
		SELECT symbol, is_active, first_activity_date, last_activity_date, position_closed_date,
		       last_synced_at, last_quote_date, earliest_quote_date, data_source, sync_priority,
		       error_count, last_error, created_at, updated_at
		FROM quote_sync_states WHERE data_source = ?`, dataSource)
}

func (r *QuoteSyncStateRepository) list(ctx context.Context, query string, args ...interface{}) ([]*quotes.SyncState, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quote sync states: %w", err)
	}
	defer rows.Close()

	var out []*quotes.SyncState
	for rows.Next() {
		s, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote sync state: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces the sync state row for s.Symbol.
func (r *QuoteSyncStateRepository) Upsert(ctx context.Context, s *quotes.SyncState) error {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))

	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO quote_sync_states
		(symbol, is_active, first_activity_date, last_activity_date, position_closed_date,
		 last_synced_at, last_quote_date, earliest_quote_date, data_source, sync_priority,
		 error_count, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Symbol,
		s.IsActive,
		nullDate(s.FirstActivityDate),
		nullDate(s.LastActivityDate),
		nullDate(s.PositionClosedAt),
		nullTimestamp(s.LastSyncedAt),
		nullDate(s.LastQuoteDate),
		nullDate(s.EarliestQuoteDate),
		s.DataSource,
		s.SyncPriority,
		s.ErrorCount,
		nullString(s.LastError),
		s.CreatedAt.UTC().Format(time.RFC3339),
		s.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert quote sync state %s: %w", s.Symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.log.Debug().Str("symbol", s.Symbol).Msg("quote sync state upserted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncState(row rowScanner) (*quotes.SyncState, error) {
	var s quotes.SyncState
	var firstActivity, lastActivity, positionClosed sql.NullString
	var lastSynced sql.NullString
	var lastQuote, earliestQuote sql.NullString
	var lastError sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&s.Symbol,
		&s.IsActive,
		&firstActivity,
		&lastActivity,
		&positionClosed,
		&lastSynced,
		&lastQuote,
		&earliestQuote,
		&s.DataSource,
		&s.SyncPriority,
		&s.ErrorCount,
		&lastError,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.FirstActivityDate = parseDate(firstActivity)
	s.LastActivityDate = parseDate(lastActivity)
	s.PositionClosedAt = parseDate(positionClosed)
	s.LastSyncedAt = parseTimestamp(lastSynced)
	s.LastQuoteDate = parseDate(lastQuote)
	s.EarliestQuoteDate = parseDate(earliestQuote)
	if lastError.Valid {
		s.LastError = lastError.String
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &s, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(sqliteDateLayout), Valid: true}
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(sqliteDateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimestamp(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
