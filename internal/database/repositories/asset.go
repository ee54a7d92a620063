package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/afadil/wealthfolio-sub004/internal/portfolio"
)

// AssetRepository persists asset metadata.
type AssetRepository struct {
	*BaseRepository
}

// NewAssetRepository builds a repository backed by db.
func NewAssetRepository(db *sql.DB, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{BaseRepository: NewBase(db, log.With().Str("repo", "asset").Logger())}
}

func (r *AssetRepository) Get(ctx context.Context, id string) (*portfolio.Asset, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT id, symbol, mic, currency, data_source, class, subclass FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query asset %s: %w", id, err)
	}
	return a, nil
}

func (r *AssetRepository) List(ctx context.Context) ([]portfolio.Asset, error) {
	rows, err := r.DB().QueryContext(ctx, `SELECT id, symbol, mic, currency, data_source, class, subclass FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []portfolio.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AssetRepository) Upsert(ctx context.Context, a portfolio.Asset) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO assets (id, symbol, mic, currency, data_source, class, subclass)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			mic = excluded.mic,
			currency = excluded.currency,
			data_source = excluded.data_source,
			class = excluded.class,
			subclass = excluded.subclass`,
		a.ID, a.Symbol, a.MIC, a.Currency, a.DataSource, string(a.Class), a.Subclass,
	)
	if err != nil {
		return fmt.Errorf("upsert asset %s: %w", a.ID, err)
	}
	return nil
}

func scanAsset(row rowScanner) (*portfolio.Asset, error) {
	var a portfolio.Asset
	var class string
	err := row.Scan(&a.ID, &a.Symbol, &a.MIC, &a.Currency, &a.DataSource, &class, &a.Subclass)
	if err != nil {
		return nil, err
	}
	a.Class = portfolio.AssetClass(class)
	return &a, nil
}
