package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/afadil/wealthfolio-sub004/internal/ledger"
)

// Repository persists and retrieves snapshots for replay and downstream
// reads (valuation, holdings).
type Repository interface {
	LatestBefore(accountID string, date time.Time) (*AccountStateSnapshot, error) // most recent snapshot with Date <= date, nil if none
	ListInRange(accountID string, start, end time.Time) ([]AccountStateSnapshot, error)
	Keyframes(accountID string, start, end *time.Time) ([]AccountStateSnapshot, error)
	Upsert(s AccountStateSnapshot) error
	DeleteCalculatedFrom(accountID string, from time.Time) error
}

// IDGenerator mints snapshot ids; tests can supply a deterministic stub.
type IDGenerator func(accountID string, date time.Time) string

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Replayer rebuilds Calculated snapshots from activities, honoring
// keyframes already stored in the repository.
type Replayer struct {
	repo   Repository
	genID  IDGenerator
	nowFn  func() time.Time
}

// NewReplayer builds a Replayer. now is injected so replay runs are
// reproducible in tests; pass time.Now in production.
func NewReplayer(repo Repository, genID IDGenerator, now func() time.Time) *Replayer {
	return &Replayer{repo: repo, genID: genID, nowFn: now}
}

// checkpointDates are dates a Calculated snapshot must be written for even
// without same-day activity (e.g. a downstream valuation request).
type checkpointDates map[int64]struct{}

func checkpointsFrom(dates []time.Time) checkpointDates {
	c := make(checkpointDates, len(dates))
	for _, d := range dates {
		c[truncateDay(d).Unix()] = struct{}{}
	}
	return c
}

func (c checkpointDates) has(d time.Time) bool {
	_, ok := c[truncateDay(d).Unix()]
	return ok
}

// Replay applies activities (sorted by date then id) from the account's
// seed state — the latest snapshot at or before start, or a fresh state —
// forward through end, writing one Calculated snapshot per day that saw
// activity or was named in checkpoints. fx resolves activity currency
// conversions; it may be nil.
func (r *Replayer) Replay(accountID string, activities []ledger.Activity, start, end time.Time, checkpoints []time.Time, fx ledger.FxLookup) error {
	sort.SliceStable(activities, func(i, j int) bool {
		if !activities[i].Date.Equal(activities[j].Date) {
			return activities[i].Date.Before(activities[j].Date)
		}
		return activities[i].ID < activities[j].ID
	})

	seed, err := r.repo.LatestBefore(accountID, start)
	if err != nil {
		return fmt.Errorf("loading seed snapshot: %w", err)
	}

	state := ledger.NewAccountState(accountID)
	if seed != nil {
		hydrate(state, *seed)
	}

	keyframes, err := r.repo.Keyframes(accountID, &start, &end)
	if err != nil {
		return fmt.Errorf("loading keyframes: %w", err)
	}
	keyframesByDay := make(map[int64]AccountStateSnapshot, len(keyframes))
	for _, kf := range keyframes {
		keyframesByDay[truncateDay(kf.Date).Unix()] = kf
	}

	checkpointSet := checkpointsFrom(checkpoints)

	byDay := make(map[int64][]ledger.Activity)
	for _, a := range activities {
		day := truncateDay(a.Date).Unix()
		byDay[day] = append(byDay[day], a)
	}

	now := truncateDay(start)
	last := truncateDay(end)
	for !now.After(last) {
		if kf, ok := keyframesByDay[now.Unix()]; ok {
			// A keyframe is a hard reset point: discard whatever replay has
			// accumulated so far and continue forward from it. It is already
			// stored under its own source, so no Calculated row is written
			// for this day.
			resetState(state)
			hydrate(state, kf)
			now = now.AddDate(0, 0, 1)
			continue
		}

		dayActivities := byDay[now.Unix()]
		for _, a := range dayActivities {
			if err := state.Apply(a, fx); err != nil {
				// Calculation/validation errors skip just this activity;
				// the pipeline never aborts the whole replay on one bad row.
				continue
			}
		}

		if len(dayActivities) > 0 || checkpointSet.has(now) {
			snap := fromState(r.genID(accountID, now), state, now, SourceCalculated, r.nowFn())
			if err := r.repo.Upsert(snap); err != nil {
				return fmt.Errorf("writing snapshot for %s: %w", now.Format("2006-01-02"), err)
			}
		}

		now = now.AddDate(0, 0, 1)
	}

	return nil
}

// resetState clears positions and cash balances in place, so a keyframe can
// overwrite replay state entirely rather than build on top of it.
func resetState(state *ledger.AccountState) {
	for k := range state.Positions {
		delete(state.Positions, k)
	}
	for k := range state.CashBalances {
		delete(state.CashBalances, k)
	}
	state.Warnings = nil
}

// hydrate seeds a ledger AccountState from a stored snapshot's financial
// fields, collapsing each position to a single synthetic lot at its
// average cost (replay only needs aggregate quantity/cost-basis from a
// keyframe onward, not per-lot FIFO history predating it).
func hydrate(state *ledger.AccountState, snap AccountStateSnapshot) {
	for assetID, fin := range snap.Positions {
		if fin.Quantity.IsZero() {
			continue
		}
		pos := &ledger.Position{AssetID: assetID, Currency: fin.Currency}
		pos.Lots = []*ledger.Lot{{
			AcquisitionDate:  snap.Date,
			Quantity:         fin.Quantity,
			AcquisitionPrice: fin.AverageCost,
		}}
		state.Positions[assetID] = pos
	}
	for ccy, bal := range snap.CashBalances {
		state.CashBalances[ccy] = bal
	}
}

// ForceRecalculate deletes Calculated snapshots from `from` onward
// (preserving keyframes), then re-runs replay across the same range.
func (r *Replayer) ForceRecalculate(accountID string, activities []ledger.Activity, from, end time.Time, checkpoints []time.Time, fx ledger.FxLookup) error {
	if err := r.repo.DeleteCalculatedFrom(accountID, from); err != nil {
		return fmt.Errorf("deleting calculated snapshots: %w", err)
	}
	return r.Replay(accountID, activities, from, end, checkpoints, fx)
}
