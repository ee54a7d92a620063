package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/snapshot"
)

// SnapshotRepository persists AccountStateSnapshot rows. It satisfies both
// snapshot.Repository (the narrow contract the Replayer drives replay
// through) and snapshot.Store (the full SPEC_FULL.md §6 contract read-side
// callers use).
type SnapshotRepository struct {
	*BaseRepository
}

// NewSnapshotRepository builds a repository backed by db.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{BaseRepository: NewBase(db, log.With().Str("repo", "snapshot").Logger())}
}

// positionFinancialsDTO mirrors snapshot.PositionFinancials with
// string-encoded decimals for stable JSON round-tripping.
type positionFinancialsDTO struct {
	Quantity       string `json:"quantity"`
	AverageCost    string `json:"average_cost"`
	TotalCostBasis string `json:"total_cost_basis"`
	Currency       string `json:"currency"`
}

func encodePositions(positions map[string]snapshot.PositionFinancials) (string, error) {
	dto := make(map[string]positionFinancialsDTO, len(positions))
	for assetID, p := range positions {
		dto[assetID] = positionFinancialsDTO{
			Quantity:       p.Quantity.String(),
			AverageCost:    p.AverageCost.String(),
			TotalCostBasis: p.TotalCostBasis.String(),
			Currency:       p.Currency,
		}
	}
	b, err := json.Marshal(dto)
	return string(b), err
}

func decodePositions(raw string) (map[string]snapshot.PositionFinancials, error) {
	var dto map[string]positionFinancialsDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, err
	}
	out := make(map[string]snapshot.PositionFinancials, len(dto))
	for assetID, p := range dto {
		qty, _ := decimal.NewFromString(p.Quantity)
		avg, _ := decimal.NewFromString(p.AverageCost)
		cost, _ := decimal.NewFromString(p.TotalCostBasis)
		out[assetID] = snapshot.PositionFinancials{
			Quantity:       qty,
			AverageCost:    avg,
			TotalCostBasis: cost,
			Currency:       p.Currency,
		}
	}
	return out, nil
}

func encodeCash(cash map[string]decimal.Decimal) (string, error) {
	dto := make(map[string]string, len(cash))
	for ccy, amt := range cash {
		dto[ccy] = amt.String()
	}
	b, err := json.Marshal(dto)
	return string(b), err
}

func decodeCash(raw string) (map[string]decimal.Decimal, error) {
	var dto map[string]string
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(dto))
	for ccy, amt := range dto {
		d, _ := decimal.NewFromString(amt)
		out[ccy] = d
	}
	return out, nil
}

// Upsert inserts or replaces the (account_id, date) row.
func (r *SnapshotRepository) Upsert(s snapshot.AccountStateSnapshot) error {
	ctx := context.Background()
	positionsJSON, err := encodePositions(s.Positions)
	if err != nil {
		return fmt.Errorf("encode positions: %w", err)
	}
	cashJSON, err := encodeCash(s.CashBalances)
	if err != nil {
		return fmt.Errorf("encode cash balances: %w", err)
	}

	_, err = r.DB().ExecContext(ctx, `
		INSERT INTO holdings_snapshots (id, account_id, snapshot_date, source, positions_json, cash_balances_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, snapshot_date) DO UPDATE SET
			id = excluded.id,
			source = excluded.source,
			positions_json = excluded.positions_json,
			cash_balances_json = excluded.cash_balances_json,
			created_at = excluded.created_at`,
		s.ID, s.AccountID, s.Date.UTC().Format(sqliteDateLayout), string(s.Source),
		positionsJSON, cashJSON, s.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s/%s: %w", s.AccountID, s.Date.Format(sqliteDateLayout), err)
	}
	return nil
}

// LatestBefore returns the most recent snapshot with date <= date, nil if none.
func (r *SnapshotRepository) LatestBefore(accountID string, date time.Time) (*snapshot.AccountStateSnapshot, error) {
	row := r.DB().QueryRowContext(context.Background(), `
		SELECT id, account_id, snapshot_date, source, positions_json, cash_balances_json, created_at
		FROM holdings_snapshots
		WHERE account_id = ? AND snapshot_date <= ?
		ORDER BY snapshot_date DESC LIMIT 1`,
		accountID, date.UTC().Format(sqliteDateLayout))

	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot before %s for %s: %w", date.Format(sqliteDateLayout), accountID, err)
	}
	return s, nil
}

// LatestFor returns the most recent snapshot for accountID, nil if none.
func (r *SnapshotRepository) LatestFor(accountID string) (*snapshot.AccountStateSnapshot, error) {
	return r.LatestBefore(accountID, time.Now().AddDate(100, 0, 0))
}

// ListInRange lists snapshots in [start, end] inclusive, ordered by date.
func (r *SnapshotRepository) ListInRange(accountID string, start, end time.Time) ([]snapshot.AccountStateSnapshot, error) {
	s, e := start, end
	return r.Between(accountID, &s, &e)
}

// Between lists snapshots in an optionally-bounded date range.
func (r *SnapshotRepository) Between(accountID string, start, end *time.Time) ([]snapshot.AccountStateSnapshot, error) {
	query := `SELECT id, account_id, snapshot_date, source, positions_json, cash_balances_json, created_at FROM holdings_snapshots WHERE account_id = ?`
	args := []interface{}{accountID}
	if start != nil {
		query += " AND snapshot_date >= ?"
		args = append(args, start.UTC().Format(sqliteDateLayout))
	}
	if end != nil {
		query += " AND snapshot_date <= ?"
		args = append(args, end.UTC().Format(sqliteDateLayout))
	}
	query += " ORDER BY snapshot_date ASC"
	return r.query(query, args...)
}

// Keyframes lists keyframe snapshots (source != CALCULATED) in an
// optionally-bounded date range.
func (r *SnapshotRepository) Keyframes(accountID string, start, end *time.Time) ([]snapshot.AccountStateSnapshot, error) {
	query := `SELECT id, account_id, snapshot_date, source, positions_json, cash_balances_json, created_at FROM holdings_snapshots WHERE account_id = ? AND source != ?`
	args := []interface{}{accountID, string(snapshot.SourceCalculated)}
	if start != nil {
		query += " AND snapshot_date >= ?"
		args = append(args, start.UTC().Format(sqliteDateLayout))
	}
	if end != nil {
		query += " AND snapshot_date <= ?"
		args = append(args, end.UTC().Format(sqliteDateLayout))
	}
	query += " ORDER BY snapshot_date ASC"
	return r.query(query, args...)
}

func (r *SnapshotRepository) query(query string, args ...interface{}) ([]snapshot.AccountStateSnapshot, error) {
	rows, err := r.DB().QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []snapshot.AccountStateSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeleteCalculatedFrom deletes Calculated snapshots with date >= from,
// preserving keyframes. Matches the Replayer.Repository contract.
func (r *SnapshotRepository) DeleteCalculatedFrom(accountID string, from time.Time) error {
	return r.DeleteCalculatedSince(accountID, from)
}

// DeleteCalculatedSince deletes Calculated snapshots with date >= from,
// preserving keyframes.
func (r *SnapshotRepository) DeleteCalculatedSince(accountID string, from time.Time) error {
	_, err := r.DB().ExecContext(context.Background(), `
		DELETE FROM holdings_snapshots
		WHERE account_id = ? AND snapshot_date >= ? AND source = ?`,
		accountID, from.UTC().Format(sqliteDateLayout), string(snapshot.SourceCalculated),
	)
	if err != nil {
		return fmt.Errorf("delete calculated snapshots since %s for %s: %w", from.Format(sqliteDateLayout), accountID, err)
	}
	return nil
}

// DeleteDates removes the rows for accountID at exactly the given dates,
// regardless of source.
func (r *SnapshotRepository) DeleteDates(accountID string, dates []time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	tx, err := r.DB().BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`DELETE FROM holdings_snapshots WHERE account_id = ? AND snapshot_date = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, d := range dates {
		if _, err := stmt.Exec(accountID, d.UTC().Format(sqliteDateLayout)); err != nil {
			return fmt.Errorf("delete snapshot %s/%s: %w", accountID, d.Format(sqliteDateLayout), err)
		}
	}
	return tx.Commit()
}

func scanSnapshot(row rowScanner) (*snapshot.AccountStateSnapshot, error) {
	var s snapshot.AccountStateSnapshot
	var date, source, positionsJSON, cashJSON, createdAt string

	err := row.Scan(&s.ID, &s.AccountID, &date, &source, &positionsJSON, &cashJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	s.Date, _ = time.Parse(sqliteDateLayout, date)
	s.Source = snapshot.Source(source)
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	positions, err := decodePositions(positionsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	s.Positions = positions

	cash, err := decodeCash(cashJSON)
	if err != nil {
		return nil, fmt.Errorf("decode cash balances: %w", err)
	}
	s.CashBalances = cash

	return &s, nil
}
