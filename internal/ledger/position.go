package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// Lot is one acquisition of a position, consumed FIFO on relief.
type Lot struct {
	AcquisitionDate time.Time
	Quantity        decimal.Decimal
	AcquisitionPrice decimal.Decimal // per unit, in position currency
	Fee             decimal.Decimal
	FxRateToPosition decimal.Decimal // rate applied when the lot's own currency differed from the position currency; 1 otherwise
}

// CostBasis returns the lot's total cost basis (quantity * price), in
// position currency.
func (l Lot) CostBasis() decimal.Decimal {
	return l.Quantity.Mul(l.AcquisitionPrice)
}

// Position aggregates all open lots for one asset within one account.
type Position struct {
	AssetID       string
	Currency      string // set on first lot; mismatched activities are flagged, not rejected
	MixedCurrency bool
	Lots          []*Lot
}

// Quantity sums the remaining quantity across all lots.
func (p *Position) Quantity() decimal.Decimal {
	total := money.Zero
	for _, l := range p.Lots {
		total = total.Add(l.Quantity)
	}
	return total
}

// TotalCostBasis sums cost basis across all open lots.
func (p *Position) TotalCostBasis() decimal.Decimal {
	total := money.Zero
	for _, l := range p.Lots {
		total = total.Add(l.CostBasis())
	}
	return total
}

// AverageCost returns TotalCostBasis / Quantity, or zero when the position
// is flat.
func (p *Position) AverageCost() decimal.Decimal {
	qty := p.Quantity()
	if money.IsNegligible(qty) {
		return money.Zero
	}
	return p.TotalCostBasis().Div(qty)
}

// addLot appends a lot and sorts lots by acquisition date (stable on ties,
// so insertion order within a day is preserved for FIFO relief).
func (p *Position) addLot(l *Lot) {
	p.Lots = append(p.Lots, l)
	sort.SliceStable(p.Lots, func(i, j int) bool {
		return p.Lots[i].AcquisitionDate.Before(p.Lots[j].AcquisitionDate)
	})
}

// reliefResult is what FIFO relief releases back to the caller.
type reliefResult struct {
	QtyReduced         decimal.Decimal
	CostBasisReleased  decimal.Decimal // in position currency
}

// relieveFIFO consumes qty from the oldest lots first. Partial relief of a
// lot proportionally reduces its quantity and cost basis; lots reduced
// below money.QuantityEpsilon are dropped. It returns how much quantity
// was actually relieved (it may be less than requested if the position
// does not hold enough) and the cost basis released.
func (p *Position) relieveFIFO(qty decimal.Decimal) reliefResult {
	remaining := qty
	released := money.Zero
	reduced := money.Zero

	kept := p.Lots[:0]
	for _, l := range p.Lots {
		if remaining.LessThanOrEqual(money.Zero) {
			kept = append(kept, l)
			continue
		}
		if l.Quantity.LessThanOrEqual(remaining) {
			released = released.Add(l.CostBasis())
			reduced = reduced.Add(l.Quantity)
			remaining = remaining.Sub(l.Quantity)
			continue // lot fully consumed, dropped
		}

		fraction := remaining.Div(l.Quantity)
		basisReleased := l.CostBasis().Mul(fraction)
		released = released.Add(basisReleased)
		reduced = reduced.Add(remaining)

		l.Quantity = l.Quantity.Sub(remaining)
		remaining = money.Zero
		if !money.IsNegligible(l.Quantity) {
			kept = append(kept, l)
		}
	}
	p.Lots = kept

	return reliefResult{QtyReduced: reduced, CostBasisReleased: released}
}

// applySplit multiplies every lot's quantity by ratio and divides its
// acquisition price by ratio; cost basis and fees are unchanged.
func (p *Position) applySplit(ratio decimal.Decimal) {
	for _, l := range p.Lots {
		l.Quantity = l.Quantity.Mul(ratio)
		l.AcquisitionPrice = l.AcquisitionPrice.Div(ratio)
	}
}
