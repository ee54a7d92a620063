package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/valuation"
)

// ValuationRepository persists daily account valuations.
type ValuationRepository struct {
	*BaseRepository
}

// NewValuationRepository builds a repository backed by db.
func NewValuationRepository(db *sql.DB, log zerolog.Logger) *ValuationRepository {
	return &ValuationRepository{BaseRepository: NewBase(db, log.With().Str("repo", "valuation").Logger())}
}

const valuationColumns = `id, account_id, valuation_date, base_currency, market_value_local, market_value_base,
	cost_basis_base, unrealized_pnl_base, net_contribution_base, fx_rate_account_to_base, calculated_at`

// LatestDate returns the most recent valuation_date stored for accountID.
func (r *ValuationRepository) LatestDate(ctx context.Context, accountID string) (time.Time, bool, error) {
	var date string
	err := r.DB().QueryRowContext(ctx, `
		SELECT valuation_date FROM daily_valuations WHERE account_id = ? ORDER BY valuation_date DESC LIMIT 1`,
		accountID).Scan(&date)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest valuation date for %s: %w", accountID, err)
	}
	t, _ := time.Parse(sqliteDateLayout, date)
	return t, true, nil
}

// Between lists valuations for accountID in an optionally-bounded range.
func (r *ValuationRepository) Between(ctx context.Context, accountID string, start, end *time.Time) ([]valuation.DailyAccountValuation, error) {
	query := `SELECT ` + valuationColumns + ` FROM daily_valuations WHERE account_id = ?`
	args := []interface{}{accountID}
	if start != nil {
		query += " AND valuation_date >= ?"
		args = append(args, start.UTC().Format(sqliteDateLayout))
	}
	if end != nil {
		query += " AND valuation_date <= ?"
		args = append(args, end.UTC().Format(sqliteDateLayout))
	}
	query += " ORDER BY valuation_date ASC"
	return r.query(ctx, query, args...)
}

// LatestMany returns the most recent valuation for each of accountIDs.
func (r *ValuationRepository) LatestMany(ctx context.Context, accountIDs []string) (map[string]valuation.DailyAccountValuation, error) {
	out := make(map[string]valuation.DailyAccountValuation, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(accountIDs))
	args := make([]interface{}, len(accountIDs))
	for i, id := range accountIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.query(ctx, `
		SELECT `+valuationColumns+` FROM daily_valuations
		WHERE account_id IN (`+strings.Join(placeholders, ",")+`)
		AND valuation_date = (
			SELECT MAX(d2.valuation_date) FROM daily_valuations d2 WHERE d2.account_id = daily_valuations.account_id
		)`, args...)
	if err != nil {
		return nil, err
	}
	for _, v := range rows {
		out[v.AccountID] = v
	}
	return out, nil
}

// OnDate lists the valuation for each of accountIDs on exactly date, if present.
func (r *ValuationRepository) OnDate(ctx context.Context, accountIDs []string, date time.Time) ([]valuation.DailyAccountValuation, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(accountIDs))
	args := make([]interface{}, 0, len(accountIDs)+1)
	for i, id := range accountIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, date.UTC().Format(sqliteDateLayout))
	return r.query(ctx, `
		SELECT `+valuationColumns+` FROM daily_valuations
		WHERE account_id IN (`+strings.Join(placeholders, ",")+`) AND valuation_date = ?`, args...)
}

func (r *ValuationRepository) query(ctx context.Context, query string, args ...interface{}) ([]valuation.DailyAccountValuation, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query valuations: %w", err)
	}
	defer rows.Close()

	var out []valuation.DailyAccountValuation
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan valuation: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// UpsertBatch writes every row in one transaction.
func (r *ValuationRepository) UpsertBatch(ctx context.Context, rows []valuation.DailyAccountValuation) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_valuations
		(id, account_id, valuation_date, base_currency, market_value_local, market_value_base,
		 cost_basis_base, unrealized_pnl_base, net_contribution_base, fx_rate_account_to_base, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, valuation_date) DO UPDATE SET
			id = excluded.id,
			base_currency = excluded.base_currency,
			market_value_local = excluded.market_value_local,
			market_value_base = excluded.market_value_base,
			cost_basis_base = excluded.cost_basis_base,
			unrealized_pnl_base = excluded.unrealized_pnl_base,
			net_contribution_base = excluded.net_contribution_base,
			fx_rate_account_to_base = excluded.fx_rate_account_to_base,
			calculated_at = excluded.calculated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range rows {
		_, err := stmt.ExecContext(ctx,
			v.ID, v.AccountID, v.Date.UTC().Format(sqliteDateLayout), v.BaseCurrency,
			v.MarketValueLocal.String(), v.TotalValue.String(), v.CostBasis.String(),
			v.UnrealizedPnLBase.String(), v.NetContribution.String(), v.FxRateAccountToBase.String(),
			v.CalculatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("upsert valuation %s/%s: %w", v.AccountID, v.Date.Format(sqliteDateLayout), err)
		}
	}
	return tx.Commit()
}

// DeleteFor removes every stored valuation for accountID, used ahead of a
// full recalculation.
func (r *ValuationRepository) DeleteFor(ctx context.Context, accountID string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM daily_valuations WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("delete valuations for %s: %w", accountID, err)
	}
	return nil
}

func scanValuation(row rowScanner) (*valuation.DailyAccountValuation, error) {
	var v valuation.DailyAccountValuation
	var date, marketValueLocal, marketValueBase, costBasisBase, pnlBase, netContribution, fxRate, calculatedAt string

	err := row.Scan(&v.ID, &v.AccountID, &date, &v.BaseCurrency,
		&marketValueLocal, &marketValueBase, &costBasisBase, &pnlBase, &netContribution, &fxRate, &calculatedAt)
	if err != nil {
		return nil, err
	}

	v.Date, _ = time.Parse(sqliteDateLayout, date)
	v.MarketValueLocal, _ = decimal.NewFromString(marketValueLocal)
	v.TotalValue, _ = decimal.NewFromString(marketValueBase)
	v.CostBasis, _ = decimal.NewFromString(costBasisBase)
	v.UnrealizedPnLBase, _ = decimal.NewFromString(pnlBase)
	v.NetContribution, _ = decimal.NewFromString(netContribution)
	v.FxRateAccountToBase, _ = decimal.NewFromString(fxRate)
	v.CalculatedAt, _ = time.Parse(time.RFC3339, calculatedAt)
	return &v, nil
}
