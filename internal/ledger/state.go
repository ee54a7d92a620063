package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// cashAssetIDPrefix marks the synthetic per-currency cash asset id used to
// tell a cash transfer from an asset transfer on a single TransferIn/
// TransferOut tag; mirrors portfolio.CashAssetIDPrefix without importing it.
const cashAssetIDPrefix = "$CASH-"

func isCashAsset(assetID string) bool {
	return assetID == "" || strings.HasPrefix(assetID, cashAssetIDPrefix)
}

// InvalidActivityError flags an activity the dispatcher refuses to apply.
type InvalidActivityError struct {
	ActivityID string
	Reason     string
}

func (e *InvalidActivityError) Error() string {
	return fmt.Sprintf("invalid activity %s: %s", e.ActivityID, e.Reason)
}

// CurrencyMismatchWarning is recorded (not returned as an error) when an
// activity's currency differs from its position/account currency and no FX
// rate could be resolved; the activity still applies, in its own currency.
type CurrencyMismatchWarning struct {
	ActivityID string
	Expected   string
	Got        string
}

// AccountState is the mutable ledger state for one account: open
// positions keyed by asset id, and cash balances keyed by currency.
type AccountState struct {
	AccountID     string
	Positions     map[string]*Position
	CashBalances  map[string]decimal.Decimal
	Warnings      []CurrencyMismatchWarning
}

// NewAccountState builds an empty ledger state for accountID.
func NewAccountState(accountID string) *AccountState {
	return &AccountState{
		AccountID:    accountID,
		Positions:    make(map[string]*Position),
		CashBalances: make(map[string]decimal.Decimal),
	}
}

func (s *AccountState) addCash(currency string, delta decimal.Decimal) {
	s.CashBalances[currency] = s.CashBalances[currency].Add(delta)
}

func (s *AccountState) position(assetID string) *Position {
	p, ok := s.Positions[assetID]
	if !ok {
		p = &Position{AssetID: assetID}
		s.Positions[assetID] = p
	}
	return p
}

// resolvedRate returns the rate to convert amount's currency into
// targetCurrency: 1 when they match, the activity's own FxRate when set,
// otherwise a lookup via fx. ok is false when no rate could be found for a
// genuine mismatch (caller should record a warning and skip conversion).
func resolvedRate(from, to string, date time.Time, activityRate *decimal.Decimal, fx FxLookup) (decimal.Decimal, bool) {
	if from == to {
		return money.One, true
	}
	if activityRate != nil {
		return *activityRate, true
	}
	if fx == nil {
		return money.Zero, false
	}
	rate, err := fx(from, to, date)
	if err != nil {
		return money.Zero, false
	}
	return rate, true
}

// Apply dispatches one activity against the state, mutating positions and
// cash balances per the dispatch table. fx resolves currency conversions
// the activity does not already carry; it may be nil when all activities
// are known to share one currency.
func (s *AccountState) Apply(a Activity, fx FxLookup) error {
	switch a.Type {
	case Deposit, Interest, Dividend:
		s.addCash(a.Currency, a.Amount.Sub(a.Fee))

	case Withdrawal:
		s.addCash(a.Currency, a.Amount.Add(a.Fee).Neg())

	case Fee, Tax:
		magnitude := a.Fee
		if magnitude.IsZero() {
			magnitude = a.Amount
		}
		s.addCash(a.Currency, magnitude.Neg())

	case Buy:
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "buy requires asset_id"}
		}
		s.addCash(a.Currency, a.Quantity.Mul(a.UnitPrice).Add(a.Fee).Neg())
		s.addLotConverted(a, fx)

	case Sell:
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "sell requires asset_id"}
		}
		s.position(a.AssetID).relieveFIFO(a.Quantity)
		s.addCash(a.Currency, a.Quantity.Mul(a.UnitPrice).Sub(a.Fee))

	case Split:
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "split requires asset_id"}
		}
		if !a.Quantity.IsPositive() {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "split ratio must be > 0"}
		}
		s.position(a.AssetID).applySplit(a.Quantity)
		if a.Fee.IsPositive() {
			s.addCash(a.Currency, a.Fee.Neg())
		}

	case AddHolding:
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "requires asset_id"}
		}
		s.addLotConverted(a, fx)
		if a.Fee.IsPositive() {
			s.addCash(a.Currency, a.Fee.Neg())
		}

	case RemoveHolding:
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "requires asset_id"}
		}
		s.position(a.AssetID).relieveFIFO(a.Quantity)
		if a.Fee.IsPositive() {
			s.addCash(a.Currency, a.Fee.Neg())
		}

	// TransferIn/TransferOut carry a single tag each; whether the transfer
	// moves cash or an asset is decided by AssetID, not by the activity type.
	case TransferIn:
		if isCashAsset(a.AssetID) {
			s.addCash(a.Currency, a.Amount.Sub(a.Fee))
			break
		}
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "requires asset_id"}
		}
		s.addLotConverted(a, fx)
		if a.Fee.IsPositive() {
			s.addCash(a.Currency, a.Fee.Neg())
		}

	case TransferOut:
		if isCashAsset(a.AssetID) {
			s.addCash(a.Currency, a.Amount.Add(a.Fee).Neg())
			break
		}
		if a.AssetID == "" {
			return &InvalidActivityError{ActivityID: a.ID, Reason: "requires asset_id"}
		}
		s.position(a.AssetID).relieveFIFO(a.Quantity)
		if a.Fee.IsPositive() {
			s.addCash(a.Currency, a.Fee.Neg())
		}

	case ConversionIn:
		s.addCash(a.Currency, a.Amount.Sub(a.Fee))

	case ConversionOut:
		s.addCash(a.Currency, a.Amount.Add(a.Fee).Neg())

	default:
		return &InvalidActivityError{ActivityID: a.ID, Reason: fmt.Sprintf("unknown activity type %q", a.Type)}
	}

	return nil
}

// addLotConverted builds and inserts a lot for a buy/add/transfer-in
// activity, converting into the position's established currency when the
// activity's own currency differs and a rate is available. A genuine
// mismatch with no FX is a warning, not an error: the lot is kept in its
// original currency and the position is flagged mixed-currency.
func (s *AccountState) addLotConverted(a Activity, fx FxLookup) {
	pos := s.position(a.AssetID)

	if pos.Currency == "" {
		pos.Currency = a.Currency
	}

	price := a.UnitPrice
	fxRate := money.One
	if pos.Currency != a.Currency {
		rate, ok := resolvedRate(a.Currency, pos.Currency, a.Date, a.FxRate, fx)
		if ok {
			fxRate = rate
			price = price.Mul(rate)
		} else {
			pos.MixedCurrency = true
			s.Warnings = append(s.Warnings, CurrencyMismatchWarning{
				ActivityID: a.ID,
				Expected:   pos.Currency,
				Got:        a.Currency,
			})
		}
	}

	pos.addLot(&Lot{
		AcquisitionDate:  a.Date,
		Quantity:         a.Quantity,
		AcquisitionPrice: price,
		Fee:              a.Fee,
		FxRateToPosition: fxRate,
	})
}
