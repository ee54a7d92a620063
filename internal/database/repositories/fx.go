package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/fx"
)

// FxRepository persists historical exchange rates and the synthetic FX
// assets they back.
type FxRepository struct {
	*BaseRepository
}

// NewFxRepository builds a repository backed by db.
func NewFxRepository(db *sql.DB, log zerolog.Logger) *FxRepository {
	return &FxRepository{BaseRepository: NewBase(db, log.With().Str("repo", "fx").Logger())}
}

// HistoricalAll returns every stored rate, the full table the Service loads
// into its in-memory Converter at startup and after every upsert.
func (r *FxRepository) HistoricalAll(ctx context.Context) ([]fx.Rate, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT from_currency, to_currency, rate_date, value, source FROM fx_rates`)
	if err != nil {
		return nil, fmt.Errorf("query fx rates: %w", err)
	}
	defer rows.Close()
	return scanRates(rows)
}

// Latest returns the most recent rate for every distinct currency pair.
func (r *FxRepository) Latest(ctx context.Context) ([]fx.Rate, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT fr.from_currency, fr.to_currency, fr.rate_date, fr.value, fr.source
		FROM fx_rates fr
		INNER JOIN (
			SELECT from_currency, to_currency, MAX(rate_date) AS max_date
			FROM fx_rates GROUP BY from_currency, to_currency
		) latest
		ON fr.from_currency = latest.from_currency
		AND fr.to_currency = latest.to_currency
		AND fr.rate_date = latest.max_date`)
	if err != nil {
		return nil, fmt.Errorf("query latest fx rates: %w", err)
	}
	defer rows.Close()
	return scanRates(rows)
}

// LatestBySymbol returns the most recent rate for one "{FROM}{TO}=X" symbol,
// nil if none stored.
func (r *FxRepository) LatestBySymbol(ctx context.Context, symbol string) (*fx.Rate, error) {
	from, to, ok := splitSymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("malformed fx symbol %q", symbol)
	}
	row := r.DB().QueryRowContext(ctx, `
		SELECT from_currency, to_currency, rate_date, value, source
		FROM fx_rates WHERE from_currency = ? AND to_currency = ?
		ORDER BY rate_date DESC LIMIT 1`, from, to)
	rate, err := scanRate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest rate for %s: %w", symbol, err)
	}
	return rate, nil
}

// HistoricalForPair returns every stored rate for one pair within [start, end].
func (r *FxRepository) HistoricalForPair(ctx context.Context, symbol string, start, end time.Time) ([]fx.Rate, error) {
	from, to, ok := splitSymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("malformed fx symbol %q", symbol)
	}
	rows, err := r.DB().QueryContext(ctx, `
		SELECT from_currency, to_currency, rate_date, value, source
		FROM fx_rates
		WHERE from_currency = ? AND to_currency = ? AND rate_date >= ? AND rate_date <= ?
		ORDER BY rate_date ASC`,
		from, to, start.UTC().Format(sqliteDateLayout), end.UTC().Format(sqliteDateLayout))
	if err != nil {
		return nil, fmt.Errorf("query historical rates for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanRates(rows)
}

// UpsertRate inserts or replaces one (from, to, date) observation.
func (r *FxRepository) UpsertRate(ctx context.Context, rate fx.Rate) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO fx_rates (from_currency, to_currency, rate_date, value, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_currency, to_currency, rate_date) DO UPDATE SET
			value = excluded.value,
			source = excluded.source`,
		rate.From, rate.To, rate.Date.UTC().Format(sqliteDateLayout), rate.Value.String(), rate.Source,
	)
	if err != nil {
		return fmt.Errorf("upsert fx rate %s->%s on %s: %w", rate.From, rate.To, rate.Date.Format(sqliteDateLayout), err)
	}
	return nil
}

// EnsureFxAsset registers the synthetic forex asset backing a from->to pair
// so it shows up alongside tradable assets (e.g. for provider resolution).
func (r *FxRepository) EnsureFxAsset(ctx context.Context, from, to, source string) error {
	id := fx.Symbol(from, to)
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO assets (id, symbol, mic, currency, data_source, class, subclass)
		VALUES (?, ?, '', ?, ?, 'FX', 'FOREX')
		ON CONFLICT(id) DO UPDATE SET data_source = excluded.data_source`,
		id, id, to, source,
	)
	if err != nil {
		return fmt.Errorf("ensure fx asset %s: %w", id, err)
	}
	return nil
}

func splitSymbol(symbol string) (from, to string, ok bool) {
	const suffix = "=X"
	if len(symbol) != 6+len(suffix) {
		return "", "", false
	}
	if symbol[6:] != suffix {
		return "", "", false
	}
	return symbol[0:3], symbol[3:6], true
}

func scanRates(rows *sql.Rows) ([]fx.Rate, error) {
	var out []fx.Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fx rate: %w", err)
		}
		out = append(out, *rate)
	}
	return out, rows.Err()
}

func scanRate(row rowScanner) (*fx.Rate, error) {
	var rate fx.Rate
	var date, value string
	if err := row.Scan(&rate.From, &rate.To, &date, &value, &rate.Source); err != nil {
		return nil, err
	}
	rate.Date, _ = time.Parse(sqliteDateLayout, date)
	rate.Value, _ = decimal.NewFromString(value)
	return &rate, nil
}
