package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists and retrieves valuations for incremental recompute.
// The Service itself only needs LatestDate/UpsertBatch; Between, LatestMany,
// OnDate, and DeleteFor round out the full ValuationRepository contract
// SPEC_FULL.md §6 lists, for read-side callers (history charts, HTTP
// handlers) and the force-recalculate path.
type Repository interface {
	LatestDate(ctx context.Context, accountID string) (time.Time, bool, error)
	Between(ctx context.Context, accountID string, start, end *time.Time) ([]DailyAccountValuation, error)
	LatestMany(ctx context.Context, accountIDs []string) (map[string]DailyAccountValuation, error)
	OnDate(ctx context.Context, accountIDs []string, date time.Time) ([]DailyAccountValuation, error)
	UpsertBatch(ctx context.Context, rows []DailyAccountValuation) error
	DeleteFor(ctx context.Context, accountID string) error
}

// Service drives the per-day composition across a date range for one
// account, starting from actual_start (oldest snapshot date on a full
// recalc, or last stored valuation date + 1 on incremental).
type Service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "valuation").Logger()}
}

// ActualStart resolves the first date to (re)value: lastStoredDate+1 when
// present, else oldestSnapshotDate.
func ActualStart(ctx context.Context, repo Repository, accountID string, oldestSnapshotDate time.Time) (time.Time, error) {
	last, ok, err := repo.LatestDate(ctx, accountID)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving actual start: %w", err)
	}
	if !ok {
		return oldestSnapshotDate, nil
	}
	return last.AddDate(0, 0, 1), nil
}

// ComposeRange values every day in snapshots (already bounded to
// [actualStart, maxSnapshotDate]) and upserts every row that produced a
// valuation, in one transaction. Days skipped for a data gap or missing
// FX are logged and simply absent from the written batch — the next run
// will retry them once data is present.
func (s *Service) ComposeRange(ctx context.Context, snapshots []SnapshotInput, baseCurrency string, idFor func(accountID string, date time.Time) string, quotes QuoteLookup, fx FxLookup, now time.Time) error {
	var rows []DailyAccountValuation
	for _, snap := range snapshots {
		row, err := ComposeDay(snap, baseCurrency, quotes, fx)
		if err != nil {
			if IsSkippedDay(err) {
				s.log.Warn().
					Str("account_id", snap.AccountID).
					Time("date", snap.Date).
					Err(err).
					Msg("skipping valuation day")
				continue
			}
			return fmt.Errorf("composing valuation for %s %s: %w", snap.AccountID, snap.Date.Format("2006-01-02"), err)
		}
		row.ID = idFor(snap.AccountID, snap.Date)
		row.CalculatedAt = now
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil
	}
	if err := s.repo.UpsertBatch(ctx, rows); err != nil {
		return fmt.Errorf("writing valuation batch: %w", err)
	}
	return nil
}
