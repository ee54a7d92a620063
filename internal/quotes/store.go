package quotes

import (
	"context"
	"time"
)

// Repository persists sync state across restarts.
type Repository interface {
	Get(ctx context.Context, symbol string) (*SyncState, error)
	Upsert(ctx context.Context, s *SyncState) error
	ListAll(ctx context.Context) ([]*SyncState, error)
	ListBySource(ctx context.Context, dataSource string) ([]*SyncState, error)
}

// StoredQuote is one persisted OHLCV observation, keyed by
// (asset_id, timestamp, source) for idempotent upserts.
type StoredQuote struct {
	AssetID   string
	Date      time.Time
	Open      *float64
	High      *float64
	Low       *float64
	Close     float64
	Volume    *float64
	Currency  string
	Source    string
}

// ClosePair is the latest and previous close for one asset, used by the
// holdings view to compute day-change.
type ClosePair struct {
	Latest, Previous StoredQuote
	HasPrevious      bool
}

// Store is the QuoteStore contract SPEC_FULL.md §6 lists.
type Store interface {
	GetInRange(ctx context.Context, assetIDs []string, start, end time.Time) ([]StoredQuote, error)
	LatestPair(ctx context.Context, assetIDs []string) (map[string]ClosePair, error)
	UpsertMany(ctx context.Context, quotes []StoredQuote) error
}
