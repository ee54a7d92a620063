// Package valuation composes per-day account valuations from snapshots,
// quotes, and FX rates: one DailyAccountValuation row per (account, date)
// that has full price coverage.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// DailyAccountValuation is the persisted result of one day's composition.
// TotalValue/CostBasis are the base-currency totals (market_value_base /
// cost_basis_base in SPEC_FULL.md §3); MarketValueLocal, UnrealizedPnLBase,
// and FxRateAccountToBase carry the remaining §3 fields. NetContribution
// tracks cumulative external cash flows (deposits/withdrawals net of fees)
// and is left at zero here — the composer values a single day's snapshot
// and has no access to the account's full activity history to derive it;
// the caller that drives ComposeRange over successive days may accumulate
// it from activities directly.
type DailyAccountValuation struct {
	ID                   string
	AccountID            string
	Date                 time.Time
	BaseCurrency         string
	MarketValueLocal     decimal.Decimal
	TotalValue           decimal.Decimal // market_value_base
	CostBasis            decimal.Decimal // cost_basis_base
	UnrealizedPnLBase    decimal.Decimal
	NetContribution      decimal.Decimal
	FxRateAccountToBase  decimal.Decimal
	CalculatedAt         time.Time
}

// Quote is the minimal price observation the composer needs.
type Quote struct {
	Close    decimal.Decimal
	Currency string
}

// QuoteLookup returns the quote for an asset on a date, and whether the
// asset has any quote history at all (used to distinguish "no data at
// all" — valued at zero — from "data gap on this day" — skip the day).
type QuoteLookup func(assetID string, date time.Time) (q Quote, hasQuoteOnDate bool, hasAnyHistory bool)

// FxLookup resolves a spot rate for a currency pair on a date.
type FxLookup func(from, to string, date time.Time) (decimal.Decimal, error)

// PositionInput is one position's state as of the snapshot being valued.
type PositionInput struct {
	AssetID        string
	Quantity       decimal.Decimal
	TotalCostBasis decimal.Decimal
	Currency       string
}

// SnapshotInput is the per-day state the composer values.
type SnapshotInput struct {
	AccountID     string
	AccountCurrency string
	Date          time.Time
	Positions     []PositionInput
	CashBalances  map[string]decimal.Decimal // currency -> balance
}

// skippedDayError marks a day with no resolvable valuation; callers treat
// this as "no row written", not a hard failure of the whole range.
type skippedDayError struct {
	reason string
}

func (e *skippedDayError) Error() string { return e.reason }

// ComposeDay values one snapshot for one day, per §4.G's per-day
// composition: position values are converted position-currency ->
// account-currency via the quote's own currency, then account -> base;
// cash balances convert directly. A data gap (asset has history but none
// on this exact day) skips the whole day rather than writing a partial
// valuation; an asset with no history at all is valued at zero.
func ComposeDay(in SnapshotInput, baseCurrency string, quotes QuoteLookup, fx FxLookup) (DailyAccountValuation, error) {
	valueLocal := money.Zero
	costBasisLocal := money.Zero

	for _, pos := range in.Positions {
		q, hasToday, hasAny := quotes(pos.AssetID, in.Date)
		switch {
		case hasToday:
			rate, err := fx(q.Currency, in.AccountCurrency, in.Date)
			if err != nil {
				return DailyAccountValuation{}, &skippedDayError{reason: "missing fx for quote currency: " + err.Error()}
			}
			valueLocal = valueLocal.Add(q.Close.Mul(pos.Quantity).Mul(rate))
		case hasAny:
			return DailyAccountValuation{}, &skippedDayError{reason: "quote data gap for " + pos.AssetID}
		default:
			// no quote history at all: valued at zero, contributes nothing
		}

		costBasisRate, err := fx(pos.Currency, in.AccountCurrency, in.Date)
		if err != nil {
			return DailyAccountValuation{}, &skippedDayError{reason: "missing fx for position currency: " + err.Error()}
		}
		costBasisLocal = costBasisLocal.Add(pos.TotalCostBasis.Mul(costBasisRate))
	}

	cashLocal := money.Zero
	for ccy, bal := range in.CashBalances {
		rate, err := fx(ccy, in.AccountCurrency, in.Date)
		if err != nil {
			return DailyAccountValuation{}, &skippedDayError{reason: "missing fx for cash currency: " + err.Error()}
		}
		cashLocal = cashLocal.Add(bal.Mul(rate))
	}

	toBase, err := fx(in.AccountCurrency, baseCurrency, in.Date)
	if err != nil {
		return DailyAccountValuation{}, &skippedDayError{reason: "missing fx account->base: " + err.Error()}
	}

	marketValueLocal := valueLocal.Add(cashLocal)
	totalValueBase := marketValueLocal.Mul(toBase)
	costBasisBase := costBasisLocal.Mul(toBase)

	return DailyAccountValuation{
		AccountID:           in.AccountID,
		Date:                in.Date,
		BaseCurrency:        baseCurrency,
		MarketValueLocal:    marketValueLocal,
		TotalValue:          totalValueBase,
		CostBasis:           costBasisBase,
		UnrealizedPnLBase:   totalValueBase.Sub(costBasisBase),
		FxRateAccountToBase: toBase,
	}, nil
}

// IsSkippedDay reports whether err represents a day that was intentionally
// skipped (data gap or missing FX) rather than a hard failure.
func IsSkippedDay(err error) bool {
	_, ok := err.(*skippedDayError)
	return ok
}
