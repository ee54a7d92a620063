package snapshot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afadil/wealthfolio-sub004/internal/ledger"
)

// fakeReplayRepo is an in-memory Repository double keyed by (accountID, day).
type fakeReplayRepo struct {
	byAccount map[string][]AccountStateSnapshot
}

func newFakeReplayRepo() *fakeReplayRepo {
	return &fakeReplayRepo{byAccount: make(map[string][]AccountStateSnapshot)}
}

func (f *fakeReplayRepo) seed(s AccountStateSnapshot) {
	f.byAccount[s.AccountID] = append(f.byAccount[s.AccountID], s)
}

func (f *fakeReplayRepo) LatestBefore(accountID string, date time.Time) (*AccountStateSnapshot, error) {
	var latest *AccountStateSnapshot
	for i, s := range f.byAccount[accountID] {
		if s.Date.After(date) {
			continue
		}
		if latest == nil || s.Date.After(latest.Date) {
			cp := f.byAccount[accountID][i]
			latest = &cp
		}
	}
	return latest, nil
}

func (f *fakeReplayRepo) ListInRange(accountID string, start, end time.Time) ([]AccountStateSnapshot, error) {
	var out []AccountStateSnapshot
	for _, s := range f.byAccount[accountID] {
		if !s.Date.Before(start) && !s.Date.After(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeReplayRepo) Keyframes(accountID string, start, end *time.Time) ([]AccountStateSnapshot, error) {
	var out []AccountStateSnapshot
	for _, s := range f.byAccount[accountID] {
		if !s.Source.IsKeyframe() {
			continue
		}
		if start != nil && s.Date.Before(*start) {
			continue
		}
		if end != nil && s.Date.After(*end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeReplayRepo) Upsert(s AccountStateSnapshot) error {
	rows := f.byAccount[s.AccountID]
	for i, existing := range rows {
		if truncateDay(existing.Date).Equal(truncateDay(s.Date)) && existing.Source == SourceCalculated {
			rows[i] = s
			f.byAccount[s.AccountID] = rows
			return nil
		}
	}
	f.byAccount[s.AccountID] = append(rows, s)
	return nil
}

func (f *fakeReplayRepo) DeleteCalculatedFrom(accountID string, from time.Time) error {
	var kept []AccountStateSnapshot
	for _, s := range f.byAccount[accountID] {
		if s.Source == SourceCalculated && !s.Date.Before(from) {
			continue
		}
		kept = append(kept, s)
	}
	f.byAccount[accountID] = kept
	return nil
}

func fixedID(accountID string, date time.Time) string {
	return accountID + ":" + date.Format("2006-01-02")
}

func TestReplay_AccumulatesActivitiesDayByDay(t *testing.T) {
	repo := newFakeReplayRepo()
	replayer := NewReplayer(repo, fixedID, func() time.Time { return day2024(1, 10) })

	activities := []ledger.Activity{
		{ID: "1", Type: ledger.Deposit, Date: day2024(1, 1), Amount: dec("1000"), Currency: "USD"},
		{ID: "2", Type: ledger.Buy, Date: day2024(1, 3), AssetID: "AAPL", Quantity: dec("5"), UnitPrice: dec("100"), Currency: "USD"},
	}

	err := replayer.Replay("acc1", activities, day2024(1, 1), day2024(1, 5), nil, nil)
	require.NoError(t, err)

	latest, err := repo.LatestBefore("acc1", day2024(1, 5))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.CashBalances["USD"].Equal(dec("500")))
	assert.True(t, latest.Positions["AAPL"].Quantity.Equal(dec("5")))
}

// TestReplay_KeyframeOverwritesAccumulatedState is the direct regression
// case for §4.F step 4: a keyframe dated mid-range must reset state
// entirely, discarding whatever activity replay had built up to that
// point, rather than being silently skipped.
func TestReplay_KeyframeOverwritesAccumulatedState(t *testing.T) {
	repo := newFakeReplayRepo()
	repo.seed(AccountStateSnapshot{
		AccountID: "acc1",
		Date:      day2024(1, 5),
		Source:    SourceManualEntry,
		Positions: map[string]PositionFinancials{
			"AAPL": {Quantity: dec("2"), AverageCost: dec("50"), TotalCostBasis: dec("100"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{"USD": dec("10")},
	})

	replayer := NewReplayer(repo, fixedID, func() time.Time { return day2024(1, 10) })

	activities := []ledger.Activity{
		{ID: "1", Type: ledger.Deposit, Date: day2024(1, 1), Amount: dec("1000"), Currency: "USD"},
		{ID: "2", Type: ledger.Buy, Date: day2024(1, 3), AssetID: "AAPL", Quantity: dec("5"), UnitPrice: dec("100"), Currency: "USD"},
		{ID: "3", Type: ledger.Deposit, Date: day2024(1, 7), Amount: dec("50"), Currency: "USD"},
	}

	err := replayer.Replay("acc1", activities, day2024(1, 1), day2024(1, 8), nil, nil)
	require.NoError(t, err)

	latest, err := repo.LatestBefore("acc1", day2024(1, 8))
	require.NoError(t, err)
	require.NotNil(t, latest)
	// Had the keyframe been ignored, cash would include the 1000 deposit
	// and the 500 buy debit from before day 5. The keyframe resets that
	// entirely to its own 10, then the day-7 deposit of 50 applies on top.
	assert.True(t, latest.CashBalances["USD"].Equal(dec("60")), "keyframe must reset state before later activity applies")
	assert.True(t, latest.Positions["AAPL"].Quantity.Equal(dec("2")), "keyframe's position must replace the replayed one")
}

func day2024(month, dom int) time.Time {
	return time.Date(2024, time.Month(month), dom, 0, 0, 0, 0, time.UTC)
}
