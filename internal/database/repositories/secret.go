package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SecretRepository persists small secrets (provider API keys) keyed by name.
// Values are stored as given; callers that need encryption-at-rest layer it
// on top via WF_SECRET_FILE-derived key material before calling Set.
type SecretRepository struct {
	*BaseRepository
}

// NewSecretRepository builds a repository backed by db.
func NewSecretRepository(db *sql.DB, log zerolog.Logger) *SecretRepository {
	return &SecretRepository{BaseRepository: NewBase(db, log.With().Str("repo", "secret").Logger())}
}

// Get returns the value for key, or "" with no error if unset.
func (r *SecretRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.DB().QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query secret %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (r *SecretRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO secrets (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set secret %s: %w", key, err)
	}
	return nil
}

// Delete removes key, if present.
func (r *SecretRepository) Delete(ctx context.Context, key string) error {
	_, err := r.DB().ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete secret %s: %w", key, err)
	}
	return nil
}
