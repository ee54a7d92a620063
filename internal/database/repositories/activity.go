package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/ledger"
)

// ActivityRepository persists ledger activities. Rows are append-only once
// written; Update only ever rewrites an existing row in place (it does not
// reconstruct history).
type ActivityRepository struct {
	*BaseRepository
}

// NewActivityRepository builds a repository backed by db.
func NewActivityRepository(db *sql.DB, log zerolog.Logger) *ActivityRepository {
	return &ActivityRepository{BaseRepository: NewBase(db, log.With().Str("repo", "activity").Logger())}
}

func (r *ActivityRepository) InsertMany(ctx context.Context, activities []ledger.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activities
		(id, account_id, activity_type, asset_id, activity_date, quantity, unit_price, amount, fee, currency, fx_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range activities {
		if _, err := stmt.ExecContext(ctx, activityArgs(a)...); err != nil {
			return fmt.Errorf("insert activity %s: %w", a.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.log.Debug().Int("count", len(activities)).Msg("activities inserted")
	return nil
}

// Update rewrites an existing activity row; it writes UpdatedAt as the
// caller set it and leaves CreatedAt untouched since activities are
// append-only once saved.
func (r *ActivityRepository) Update(ctx context.Context, a ledger.Activity) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE activities SET
			account_id = ?, activity_type = ?, asset_id = ?, activity_date = ?,
			quantity = ?, unit_price = ?, amount = ?, fee = ?, currency = ?, fx_rate = ?, updated_at = ?
		WHERE id = ?`,
		a.AccountID, string(a.Type), nullString(a.AssetID), a.Date.UTC().Format(time.RFC3339),
		a.Quantity.String(), a.UnitPrice.String(), a.Amount.String(), a.Fee.String(), a.Currency,
		nullDecimalPtr(a.FxRate), a.UpdatedAt.UTC().Format(time.RFC3339), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update activity %s: %w", a.ID, err)
	}
	return nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity %s: %w", id, err)
	}
	return nil
}

// ListByAccount lists activities for one or more accounts, applying filter,
// sort, and page. An empty accountIDs list matches every account.
func (r *ActivityRepository) ListByAccount(ctx context.Context, accountIDs []string, filter ledger.Filter, sort ledger.Sort, page ledger.Page) ([]ledger.Activity, error) {
	var where []string
	var args []interface{}

	if len(accountIDs) > 0 {
		placeholders := make([]string, len(accountIDs))
		for i, id := range accountIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "account_id IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.AssetID != "" {
		where = append(where, "asset_id = ?")
		args = append(args, filter.AssetID)
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "activity_type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.From != nil {
		where = append(where, "activity_date >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		where = append(where, "activity_date <= ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}

	query := `SELECT id, account_id, activity_type, asset_id, activity_date, quantity, unit_price, amount, fee, currency, fx_rate, created_at, updated_at FROM activities`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	orderField := "activity_date"
	if sort.Field == "created_at" {
		orderField = "created_at"
	}
	query += " ORDER BY " + orderField
	if sort.Descending {
		query += " DESC"
	}
	query += ", id"

	if page.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []ledger.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func activityArgs(a ledger.Activity) []interface{} {
	return []interface{}{
		a.ID, a.AccountID, string(a.Type), nullString(a.AssetID), a.Date.UTC().Format(time.RFC3339),
		a.Quantity.String(), a.UnitPrice.String(), a.Amount.String(), a.Fee.String(), a.Currency,
		nullDecimalPtr(a.FxRate), a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func scanActivity(row rowScanner) (*ledger.Activity, error) {
	var a ledger.Activity
	var activityType, date, quantity, unitPrice, amount, fee string
	var assetID, fxRate sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.AccountID, &activityType, &assetID, &date,
		&quantity, &unitPrice, &amount, &fee, &a.Currency, &fxRate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Type = ledger.ActivityType(activityType)
	a.Date, _ = time.Parse(time.RFC3339, date)
	a.Quantity, _ = decimal.NewFromString(quantity)
	a.UnitPrice, _ = decimal.NewFromString(unitPrice)
	a.Amount, _ = decimal.NewFromString(amount)
	a.Fee, _ = decimal.NewFromString(fee)
	if assetID.Valid {
		a.AssetID = assetID.String
	}
	if fxRate.Valid {
		rate, err := decimal.NewFromString(fxRate.String)
		if err == nil {
			a.FxRate = &rate
		}
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func nullDecimalPtr(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
