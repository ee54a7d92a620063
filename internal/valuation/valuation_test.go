package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func identityFx(from, to string, date time.Time) (decimal.Decimal, error) {
	return dec("1"), nil
}

func TestComposeDay_SimpleSingleCurrency(t *testing.T) {
	in := SnapshotInput{
		AccountID:       "acc1",
		AccountCurrency: "USD",
		Date:            time.Now(),
		Positions: []PositionInput{
			{AssetID: "AAPL", Quantity: dec("10"), TotalCostBasis: dec("1000"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{"USD": dec("500")},
	}
	quotes := func(assetID string, date time.Time) (Quote, bool, bool) {
		return Quote{Close: dec("150"), Currency: "USD"}, true, true
	}

	row, err := ComposeDay(in, "USD", quotes, identityFx)
	require.NoError(t, err)
	assert.True(t, row.TotalValue.Equal(dec("2000"))) // 10*150 + 500
	assert.True(t, row.CostBasis.Equal(dec("1000")))
}

// TestComposeDay_MixedCurrencyPositionsConvertsCostBasis is the regression
// case for mixed-currency positions within one account (§4.E): cost basis
// is carried per position in its own currency and must convert through the
// account currency before summing, the same way market value does.
func TestComposeDay_MixedCurrencyPositionsConvertsCostBasis(t *testing.T) {
	in := SnapshotInput{
		AccountID:       "acc1",
		AccountCurrency: "USD",
		Date:            time.Now(),
		Positions: []PositionInput{
			{AssetID: "AAPL", Quantity: dec("10"), TotalCostBasis: dec("1000"), Currency: "USD"},
			{AssetID: "VOD", Quantity: dec("5"), TotalCostBasis: dec("400"), Currency: "GBP"},
		},
		CashBalances: map[string]decimal.Decimal{},
	}
	quotes := func(assetID string, date time.Time) (Quote, bool, bool) {
		return Quote{Close: dec("0"), Currency: "USD"}, true, true
	}
	fx := func(from, to string, date time.Time) (decimal.Decimal, error) {
		if from == "GBP" && to == "USD" {
			return dec("1.25"), nil
		}
		return dec("1"), nil
	}

	row, err := ComposeDay(in, "USD", quotes, fx)
	require.NoError(t, err)
	// 1000 USD + 400 GBP * 1.25 = 1500
	assert.True(t, row.CostBasis.Equal(dec("1500")), "cost basis must convert each position's own currency before summing")
}

func TestComposeDay_DataGapSkipsDay_E2E6(t *testing.T) {
	in := SnapshotInput{
		AccountID:       "acc1",
		AccountCurrency: "USD",
		Date:            time.Now(),
		Positions: []PositionInput{
			{AssetID: "X", Quantity: dec("1"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{},
	}
	quotes := func(assetID string, date time.Time) (Quote, bool, bool) {
		return Quote{}, false, true // has history elsewhere, but a gap today
	}

	_, err := ComposeDay(in, "USD", quotes, identityFx)
	require.Error(t, err)
	assert.True(t, IsSkippedDay(err))
}

func TestComposeDay_NoHistoryAtAllValuesZero(t *testing.T) {
	in := SnapshotInput{
		AccountID:       "acc1",
		AccountCurrency: "USD",
		Date:            time.Now(),
		Positions: []PositionInput{
			{AssetID: "NEW", Quantity: dec("1"), Currency: "USD"},
		},
		CashBalances: map[string]decimal.Decimal{"USD": dec("100")},
	}
	quotes := func(assetID string, date time.Time) (Quote, bool, bool) {
		return Quote{}, false, false
	}

	row, err := ComposeDay(in, "USD", quotes, identityFx)
	require.NoError(t, err)
	assert.True(t, row.TotalValue.Equal(dec("100")))
}

func TestComposeDay_MissingAccountToBaseFxSkipsDay(t *testing.T) {
	in := SnapshotInput{AccountID: "acc1", AccountCurrency: "GBP", Date: time.Now(), CashBalances: map[string]decimal.Decimal{}}
	failingFx := func(from, to string, date time.Time) (decimal.Decimal, error) {
		return decimal.Zero, assertErr
	}
	_, err := ComposeDay(in, "USD", func(string, time.Time) (Quote, bool, bool) { return Quote{}, false, false }, failingFx)
	require.Error(t, err)
	assert.True(t, IsSkippedDay(err))
}

var assertErr = errTest("no rate")

type errTest string

func (e errTest) Error() string { return string(e) }

func TestCollectRequiredPairs(t *testing.T) {
	snapshots := []SnapshotInput{
		{
			AccountCurrency: "GBP",
			Positions: []PositionInput{
				{AssetID: "AAPL", Currency: "USD"},
			},
			CashBalances: map[string]decimal.Decimal{"EUR": dec("1")},
		},
	}
	pairs := CollectRequiredPairs(snapshots, "USD")
	assert.Contains(t, pairs, CurrencyPair{From: "GBP", To: "USD"})
	assert.Contains(t, pairs, CurrencyPair{From: "USD", To: "GBP"})
	assert.Contains(t, pairs, CurrencyPair{From: "EUR", To: "GBP"})
}

func TestCollectQuoteCurrencyPairs_DiffersFromPositionCurrency(t *testing.T) {
	snapshots := []SnapshotInput{
		{
			AccountCurrency: "USD",
			Positions: []PositionInput{
				{AssetID: "VOD", Currency: "USD"}, // declared USD but quoted in GBP
			},
		},
	}
	pairs := CollectQuoteCurrencyPairs(snapshots, map[string]string{"VOD": "GBP"})
	assert.Contains(t, pairs, CurrencyPair{From: "GBP", To: "USD"})
}
