// Package ledger replays activities into a position/cash state, one
// activity at a time, following the dispatch table for each activity type.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType enumerates every activity the ledger can dispatch.
type ActivityType string

const (
	Deposit        ActivityType = "DEPOSIT"
	Withdrawal     ActivityType = "WITHDRAWAL"
	Interest       ActivityType = "INTEREST"
	Dividend       ActivityType = "DIVIDEND"
	Fee            ActivityType = "FEE"
	Tax            ActivityType = "TAX"
	Buy            ActivityType = "BUY"
	Sell           ActivityType = "SELL"
	Split          ActivityType = "SPLIT"
	AddHolding     ActivityType = "ADD_HOLDING"
	RemoveHolding  ActivityType = "REMOVE_HOLDING"
	TransferIn     ActivityType = "TRANSFER_IN"
	TransferOut    ActivityType = "TRANSFER_OUT"
	ConversionIn   ActivityType = "CONVERSION_IN"
	ConversionOut  ActivityType = "CONVERSION_OUT"
)

// Activity is one ledger event to apply.
type Activity struct {
	ID         string
	AccountID  string
	Type       ActivityType
	Date       time.Time
	AssetID    string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	Currency   string
	FxRate     *decimal.Decimal // optional: rate to position/account currency supplied on the activity itself
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FxLookup resolves a spot rate for a currency pair on a date, used when an
// activity's own currency differs from the position/account currency and
// no FxRate was supplied on the activity.
type FxLookup func(from, to string, date time.Time) (decimal.Decimal, error)

// Sort picks the column and direction activity listings are ordered by.
type Sort struct {
	Field      string // "date" or "created_at"
	Descending bool
}

// Page bounds a listing by offset and limit; Limit <= 0 means unbounded.
type Page struct {
	Offset int
	Limit  int
}

// Filter narrows aListByAccount query.
type Filter struct {
	Types   []ActivityType
	AssetID string
	From    *time.Time
	To      *time.Time
}

// Repository is the activity persistence contract SPEC_FULL.md §6 lists.
// Activities are append-only once saved; Update only ever touches
// UpdatedAt-bearing fields of an existing row, it never reconstructs
// history.
type Repository interface {
	InsertMany(ctx context.Context, activities []Activity) error
	Update(ctx context.Context, a Activity) error
	Delete(ctx context.Context, id string) error
	ListByAccount(ctx context.Context, accountIDs []string, filter Filter, sort Sort, page Page) ([]Activity, error)
}
