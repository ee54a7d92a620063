// Package holdings projects a snapshot plus live quotes into an
// enriched, weighted view of current positions and cash, and rolls that
// view up by taxonomy (asset class, sector, region, ...).
package holdings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// HoldingType distinguishes a priced position from a cash balance.
type HoldingType string

const (
	HoldingAsset HoldingType = "asset"
	HoldingCash  HoldingType = "cash"
)

// DualAmount carries a value in both local (position/account) and base
// currency, mirroring the original's local/base split.
type DualAmount struct {
	Local decimal.Decimal
	Base  decimal.Decimal
}

// Holding is one enriched line in the holdings view.
type Holding struct {
	AssetID         string
	Type            HoldingType
	Quantity        decimal.Decimal
	Price           decimal.Decimal // 1 for cash
	MarketValue     DualAmount
	CostBasis       DualAmount
	UnrealizedGain  DualAmount
	UnrealizedGainPct decimal.Decimal
	PrevCloseValue  decimal.Decimal
	DayChange       decimal.Decimal
	DayChangePct    decimal.Decimal
	Weight          decimal.Decimal // market_value.base / total, 0 when total <= 0
}

// PositionState is one position as of the latest snapshot.
type PositionState struct {
	AssetID        string
	Quantity       decimal.Decimal
	TotalCostBasis decimal.Decimal
	Currency       string
}

// QuotePair is the latest and previous close the view needs per asset.
type QuotePair struct {
	Latest, Previous decimal.Decimal
	Currency         string
}

// QuoteLookup resolves the latest/previous close for an asset "now".
type QuoteLookup func(assetID string) (QuotePair, bool)

// FxLookup resolves a spot rate for a currency pair at a point in time.
type FxLookup func(from, to string, at time.Time) (decimal.Decimal, error)

// Build composes the holdings view for one account: positions enriched
// with quotes and FX, plus one synthetic cash holding per currency
// balance. Weight is computed over the full set (assets + cash).
func Build(positions []PositionState, cashBalances map[string]decimal.Decimal, accountCurrency, baseCurrency string, now time.Time, quotes QuoteLookup, fx FxLookup) ([]Holding, error) {
	var out []Holding

	for _, pos := range positions {
		h := Holding{AssetID: pos.AssetID, Type: HoldingAsset, Quantity: pos.Quantity}

		pair, ok := quotes(pos.AssetID)
		quoteCurrency := pos.Currency
		if ok {
			quoteCurrency = pair.Currency
			h.Price = pair.Latest
		}

		rateToBase, err := fx(quoteCurrency, baseCurrency, now)
		if err != nil {
			return nil, err
		}
		rateToAccount, err := fx(pos.Currency, accountCurrency, now)
		if err != nil {
			return nil, err
		}

		marketValueLocal := h.Price.Mul(pos.Quantity)
		h.MarketValue = DualAmount{
			Local: marketValueLocal.Mul(rateToAccount),
			Base:  h.Price.Mul(pos.Quantity).Mul(rateToBase),
		}
		h.CostBasis = DualAmount{
			Local: pos.TotalCostBasis,
			Base:  pos.TotalCostBasis.Mul(rateToAccount).Mul(rateToBase),
		}
		h.UnrealizedGain = DualAmount{
			Local: h.MarketValue.Local.Sub(h.CostBasis.Local),
			Base:  h.MarketValue.Base.Sub(h.CostBasis.Base),
		}
		if !money.IsNegligible(h.CostBasis.Base) {
			h.UnrealizedGainPct = h.UnrealizedGain.Base.Div(h.CostBasis.Base).Mul(decimal.New(100, 0))
		}

		if ok {
			h.PrevCloseValue = pair.Previous.Mul(pos.Quantity).Mul(rateToBase)
			h.DayChange = h.MarketValue.Base.Sub(h.PrevCloseValue)
			if !money.IsNegligible(h.PrevCloseValue) {
				h.DayChangePct = h.DayChange.Div(h.PrevCloseValue).Mul(decimal.New(100, 0))
			}
		}

		out = append(out, h)
	}

	for currency, balance := range cashBalances {
		rateToBase, err := fx(currency, baseCurrency, now)
		if err != nil {
			return nil, err
		}
		valueBase := balance.Mul(rateToBase)
		out = append(out, Holding{
			AssetID:     "$CASH-" + currency,
			Type:        HoldingCash,
			Quantity:    balance,
			Price:       money.One,
			MarketValue: DualAmount{Local: balance, Base: valueBase},
		})
	}

	total := money.Zero
	for _, h := range out {
		total = total.Add(h.MarketValue.Base)
	}
	if total.IsPositive() {
		for i := range out {
			out[i].Weight = out[i].MarketValue.Base.Div(total)
		}
	}

	return out, nil
}
