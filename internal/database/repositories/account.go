package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/afadil/wealthfolio-sub004/internal/portfolio"
)

// AccountRepository persists accounts.
type AccountRepository struct {
	*BaseRepository
}

// NewAccountRepository builds a repository backed by db.
func NewAccountRepository(db *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{BaseRepository: NewBase(db, log.With().Str("repo", "account").Logger())}
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*portfolio.Account, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT id, name, currency, is_active, is_archived, created_at, updated_at
		FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query account %s: %w", id, err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context, activeOnly bool) ([]portfolio.Account, error) {
	query := `SELECT id, name, currency, is_active, is_archived, created_at, updated_at FROM accounts`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	return r.list(ctx, query)
}

func (r *AccountRepository) ListNonArchived(ctx context.Context) ([]portfolio.Account, error) {
	return r.list(ctx, `SELECT id, name, currency, is_active, is_archived, created_at, updated_at FROM accounts WHERE is_archived = 0`)
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...interface{}) ([]portfolio.Account, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []portfolio.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces a.ID. Currency is expected to be immutable
// after the first activity — callers enforce that at write time, not here.
func (r *AccountRepository) Upsert(ctx context.Context, a portfolio.Account) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, is_active, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_active = excluded.is_active,
			is_archived = excluded.is_archived,
			updated_at = excluded.updated_at`,
		a.ID, a.Name, a.Currency, a.IsActive, a.Archived,
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return nil
}

func scanAccount(row rowScanner) (*portfolio.Account, error) {
	var a portfolio.Account
	var createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.Name, &a.Currency, &a.IsActive, &a.Archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}
