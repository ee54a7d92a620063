package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/afadil/wealthfolio-sub004/internal/ledger"
	"github.com/afadil/wealthfolio-sub004/internal/snapshot"
	"github.com/afadil/wealthfolio-sub004/internal/snapshot/csvimport"
)

// RecordActivity persists a new activity. Callers emit ActivitySaved on
// the event sink themselves once this returns, since Service has no sink
// dependency of its own (keeps the orchestrator testable without one).
func (s *Service) RecordActivity(ctx context.Context, a ledger.Activity) (ledger.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	if err := s.activities.InsertMany(ctx, []ledger.Activity{a}); err != nil {
		return ledger.Activity{}, fmt.Errorf("inserting activity: %w", err)
	}
	return a, nil
}

// ImportCSV parses r into a CsvImport-sourced keyframe snapshot for
// accountID and upserts it. The caller emits ActivitiesImported once this
// returns at least one snapshot.
func (s *Service) ImportCSV(ctx context.Context, accountID string, r io.Reader) (csvimport.Result, error) {
	idFor := func(accountID string, date time.Time) string {
		return accountID + ":" + date.UTC().Format("2006-01-02")
	}
	result, err := csvimport.Import(r, accountID, idFor, time.Now().UTC())
	if err != nil {
		return csvimport.Result{}, fmt.Errorf("parsing csv: %w", err)
	}

	for _, snap := range result.Snapshots {
		snap.Source = snapshot.SourceCSVImport
		if err := s.snapshotStore.Upsert(snap); err != nil {
			return result, fmt.Errorf("writing csv-import keyframe for %s: %w", snap.Date.Format("2006-01-02"), err)
		}
	}
	return result, nil
}
