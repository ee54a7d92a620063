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

// QuoteRepository persists OHLCV observations.
type QuoteRepository struct {
	*BaseRepository
}

// NewQuoteRepository builds a repository backed by db.
func NewQuoteRepository(db *sql.DB, log zerolog.Logger) *QuoteRepository {
	return &QuoteRepository{BaseRepository: NewBase(db, log.With().Str("repo", "quote").Logger())}
}

// GetInRange returns every stored quote for assetIDs within [start, end],
// ordered by asset then date.
func (r *QuoteRepository) GetInRange(ctx context.Context, assetIDs []string, start, end time.Time) ([]quotes.StoredQuote, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(assetIDs))
	args := make([]interface{}, 0, len(assetIDs)+2)
	for i, id := range assetIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, start.UTC().Format(sqliteDateLayout), end.UTC().Format(sqliteDateLayout))

	rows, err := r.DB().QueryContext(ctx, `
		SELECT asset_id, quote_date, open, high, low, close, volume, currency, source
		FROM quotes
		WHERE asset_id IN (`+strings.Join(placeholders, ",")+`) AND quote_date >= ? AND quote_date <= ?
		ORDER BY asset_id ASC, quote_date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes in range: %w", err)
	}
	defer rows.Close()

	var out []quotes.StoredQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// LatestPair returns the latest and previous close for each asset, used to
// compute day-change in the holdings view.
func (r *QuoteRepository) LatestPair(ctx context.Context, assetIDs []string) (map[string]quotes.ClosePair, error) {
	out := make(map[string]quotes.ClosePair, len(assetIDs))
	for _, assetID := range assetIDs {
		rows, err := r.DB().QueryContext(ctx, `
			SELECT asset_id, quote_date, open, high, low, close, volume, currency, source
			FROM quotes WHERE asset_id = ? ORDER BY quote_date DESC LIMIT 2`, assetID)
		if err != nil {
			return nil, fmt.Errorf("query latest pair for %s: %w", assetID, err)
		}

		var recent []quotes.StoredQuote
		for rows.Next() {
			q, err := scanQuote(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan quote: %w", err)
			}
			recent = append(recent, *q)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(recent) == 0 {
			continue
		}
		pair := quotes.ClosePair{Latest: recent[0]}
		if len(recent) > 1 {
			pair.Previous = recent[1]
			pair.HasPrevious = true
		}
		out[assetID] = pair
	}
	return out, nil
}

// UpsertMany writes every quote in one transaction, keyed by (asset_id, date).
func (r *QuoteRepository) UpsertMany(ctx context.Context, rows []quotes.StoredQuote) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quotes (asset_id, quote_date, open, high, low, close, volume, currency, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id, quote_date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			currency = excluded.currency,
			source = excluded.source`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, q := range rows {
		_, err := stmt.ExecContext(ctx,
			q.AssetID, q.Date.UTC().Format(sqliteDateLayout),
			nullFloat(q.Open), nullFloat(q.High), nullFloat(q.Low), q.Close, nullFloat(q.Volume),
			q.Currency, q.Source,
		)
		if err != nil {
			return fmt.Errorf("upsert quote %s/%s: %w", q.AssetID, q.Date.Format(sqliteDateLayout), err)
		}
	}
	return tx.Commit()
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func scanQuote(row rowScanner) (*quotes.StoredQuote, error) {
	var q quotes.StoredQuote
	var date string
	var open, high, low, volume sql.NullFloat64

	err := row.Scan(&q.AssetID, &date, &open, &high, &low, &q.Close, &volume, &q.Currency, &q.Source)
	if err != nil {
		return nil, err
	}
	q.Date, _ = time.Parse(sqliteDateLayout, date)
	if open.Valid {
		q.Open = &open.Float64
	}
	if high.Valid {
		q.High = &high.Float64
	}
	if low.Valid {
		q.Low = &low.Float64
	}
	if volume.Valid {
		q.Volume = &volume.Float64
	}
	return &q, nil
}
