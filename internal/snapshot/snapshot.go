// Package snapshot replays ledger activities into daily
// AccountStateSnapshot rows: one per (account, date) that had activity or
// was requested as a checkpoint, plus synthetic TOTAL aggregation.
package snapshot

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/ledger"
)

// Store is the full SnapshotRepository contract SPEC_FULL.md §6 lists.
// Replayer only needs the narrower Repository above; Store backs read-side
// callers (valuation input bundling, holdings views, HTTP handlers) that
// need range queries and keyframe listing the replay loop doesn't.
type Store interface {
	LatestFor(accountID string) (*AccountStateSnapshot, error)
	Between(accountID string, start, end *time.Time) ([]AccountStateSnapshot, error)
	Keyframes(accountID string, start, end *time.Time) ([]AccountStateSnapshot, error)
	Upsert(s AccountStateSnapshot) error
	DeleteDates(accountID string, dates []time.Time) error
	DeleteCalculatedSince(accountID string, from time.Time) error
}

// Source identifies where a snapshot's state came from. Every Source other
// than Calculated is a keyframe: a hard reset point replay must rebuild
// from, rather than accumulate into.
type Source string

const (
	SourceCalculated    Source = "CALCULATED"
	SourceManualEntry   Source = "MANUAL_ENTRY"
	SourceBrokerImport  Source = "BROKER_IMPORTED"
	SourceCSVImport     Source = "CSV_IMPORT"
	SourceSynthetic     Source = "SYNTHETIC"
)

// IsKeyframe reports whether a snapshot of this source is a keyframe:
// replay overwrites state entirely from it rather than building on top.
func (s Source) IsKeyframe() bool { return s != SourceCalculated }

// PositionFinancials is the subset of Position fields that determine
// content equality — identity fields (lots, ids) are excluded.
type PositionFinancials struct {
	Quantity       decimal.Decimal
	AverageCost    decimal.Decimal
	TotalCostBasis decimal.Decimal
	Currency       string
}

// AccountStateSnapshot is the persisted replay checkpoint for one
// (account, date).
type AccountStateSnapshot struct {
	ID           string
	AccountID    string
	Date         time.Time
	Source       Source
	Positions    map[string]PositionFinancials
	CashBalances map[string]decimal.Decimal
	CreatedAt    time.Time
}

// financialsOf projects a ledger Position down to its financial fields.
func financialsOf(p *ledger.Position) PositionFinancials {
	return PositionFinancials{
		Quantity:       p.Quantity(),
		AverageCost:    p.AverageCost(),
		TotalCostBasis: p.TotalCostBasis(),
		Currency:       p.Currency,
	}
}

// fromState captures the account ledger's current financial state as a
// snapshot for the given date and source.
func fromState(id string, state *ledger.AccountState, date time.Time, source Source, now time.Time) AccountStateSnapshot {
	positions := make(map[string]PositionFinancials, len(state.Positions))
	for assetID, p := range state.Positions {
		if p.Quantity().IsZero() && len(p.Lots) == 0 {
			continue
		}
		positions[assetID] = financialsOf(p)
	}
	cash := make(map[string]decimal.Decimal, len(state.CashBalances))
	for ccy, bal := range state.CashBalances {
		cash[ccy] = bal
	}
	return AccountStateSnapshot{
		ID:           id,
		AccountID:    state.AccountID,
		Date:         date,
		Source:       source,
		Positions:    positions,
		CashBalances: cash,
		CreatedAt:    now,
	}
}

// ContentEqual reports whether a and b are equal on financial fields only
// (quantity, average_cost, total_cost_basis, currency for positions;
// balances for cash), ignoring id, source, and timestamps. Reflexive,
// symmetric, and transitive by construction (plain value comparison).
func ContentEqual(a, b AccountStateSnapshot) bool {
	if len(a.Positions) != len(b.Positions) || len(a.CashBalances) != len(b.CashBalances) {
		return false
	}
	for assetID, pa := range a.Positions {
		pb, ok := b.Positions[assetID]
		if !ok {
			return false
		}
		if pa.Currency != pb.Currency ||
			!pa.Quantity.Equal(pb.Quantity) ||
			!pa.AverageCost.Equal(pb.AverageCost) ||
			!pa.TotalCostBasis.Equal(pb.TotalCostBasis) {
			return false
		}
	}
	for ccy, amtA := range a.CashBalances {
		amtB, ok := b.CashBalances[ccy]
		if !ok || !amtA.Equal(amtB) {
			return false
		}
	}
	return true
}
