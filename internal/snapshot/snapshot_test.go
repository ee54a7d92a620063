package snapshot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestContentEqual_IgnoresIDAndTimestamps(t *testing.T) {
	base := AccountStateSnapshot{
		ID:        "a",
		AccountID: "acc1",
		CreatedAt: time.Now(),
		Positions: map[string]PositionFinancials{
			"AAPL": {Quantity: dec("10"), AverageCost: dec("100"), TotalCostBasis: dec("1000"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{"USD": dec("500")},
	}
	other := base
	other.ID = "b"
	other.CreatedAt = time.Now().Add(time.Hour)
	other.Source = SourceManualEntry

	assert.True(t, ContentEqual(base, other))
	assert.True(t, ContentEqual(other, base), "must be symmetric")
}

func TestContentEqual_DiffersOnQuantity(t *testing.T) {
	base := AccountStateSnapshot{
		Positions: map[string]PositionFinancials{
			"AAPL": {Quantity: dec("10"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{},
	}
	other := AccountStateSnapshot{
		Positions: map[string]PositionFinancials{
			"AAPL": {Quantity: dec("11"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{},
	}
	assert.False(t, ContentEqual(base, other))
}

func TestSourceIsKeyframe(t *testing.T) {
	assert.False(t, SourceCalculated.IsKeyframe())
	assert.True(t, SourceManualEntry.IsKeyframe())
	assert.True(t, SourceBrokerImport.IsKeyframe())
	assert.True(t, SourceCSVImport.IsKeyframe())
	assert.True(t, SourceSynthetic.IsKeyframe())
}

func TestAggregateTotal_SumsAcrossAccounts(t *testing.T) {
	date := time.Now()
	accA := AccountStateSnapshot{
		AccountID: "acc-a",
		Positions: map[string]PositionFinancials{
			"AAPL": {Quantity: dec("10"), AverageCost: dec("100"), TotalCostBasis: dec("1000"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{"USD": dec("500")},
	}
	accB := AccountStateSnapshot{
		AccountID: "acc-b",
		Positions: map[string]PositionFinancials{
			"AAPL": {Quantity: dec("5"), AverageCost: dec("120"), TotalCostBasis: dec("600"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{"USD": dec("200")},
	}

	total := AggregateTotal([]AccountStateSnapshot{accA, accB}, date, "total-1", date)

	assert.Equal(t, TotalAccountID, total.AccountID)
	assert.Equal(t, SourceSynthetic, total.Source)
	assert.True(t, total.Positions["AAPL"].Quantity.Equal(dec("15")))
	assert.True(t, total.Positions["AAPL"].TotalCostBasis.Equal(dec("1600")))
	assert.True(t, total.CashBalances["USD"].Equal(dec("700")))
}
