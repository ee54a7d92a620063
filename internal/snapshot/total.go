package snapshot

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// TotalAccountID is the pseudo-account id for the cross-account rollup.
const TotalAccountID = "TOTAL"

// AggregateTotal builds the TOTAL pseudo-account snapshot for a date: the
// disjoint union of positions across non-archived accounts (same asset_id
// sums quantity and cost basis), and cash balances summed per currency.
// TOTAL is always Synthetic and never a keyframe.
func AggregateTotal(accountSnapshots []AccountStateSnapshot, date time.Time, id string, now time.Time) AccountStateSnapshot {
	positions := make(map[string]PositionFinancials)
	cash := make(map[string]decimal.Decimal)

	for _, snap := range accountSnapshots {
		for assetID, fin := range snap.Positions {
			existing, ok := positions[assetID]
			if !ok {
				positions[assetID] = fin
				continue
			}
			qty := existing.Quantity.Add(fin.Quantity)
			basis := existing.TotalCostBasis.Add(fin.TotalCostBasis)
			avg := money.Zero
			if !money.IsNegligible(qty) {
				avg = basis.Div(qty)
			}
			currency := existing.Currency
			if currency == "" {
				currency = fin.Currency
			}
			positions[assetID] = PositionFinancials{
				Quantity:       qty,
				AverageCost:    avg,
				TotalCostBasis: basis,
				Currency:       currency,
			}
		}
		for ccy, bal := range snap.CashBalances {
			cash[ccy] = cash[ccy].Add(bal)
		}
	}

	return AccountStateSnapshot{
		ID:           id,
		AccountID:    TotalAccountID,
		Date:         date,
		Source:       SourceSynthetic,
		Positions:    positions,
		CashBalances: cash,
		CreatedAt:    now,
	}
}
