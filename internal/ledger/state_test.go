package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestApply_Deposit(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Deposit, Amount: d("100"), Fee: d("1"), Currency: "USD"}, nil))
	assert.True(t, s.CashBalances["USD"].Equal(d("99")))
}

func TestApply_Withdrawal(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Withdrawal, Amount: d("100"), Fee: d("1"), Currency: "USD"}, nil))
	assert.True(t, s.CashBalances["USD"].Equal(d("-101")))
}

func TestApply_FeePrefersFeeFieldOverAmount(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Fee, Amount: d("50"), Fee: d("5"), Currency: "USD"}, nil))
	assert.True(t, s.CashBalances["USD"].Equal(d("-5")), "fee field must win over amount when both are set")
}

func TestApply_FeeFallsBackToAmountWhenFeeZero(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Fee, Amount: d("50"), Fee: d("0"), Currency: "USD"}, nil))
	assert.True(t, s.CashBalances["USD"].Equal(d("-50")))
}

func TestApply_Buy_AddsLotAndDebitsCash(t *testing.T) {
	s := NewAccountState("acc1")
	err := s.Apply(Activity{
		ID: "1", Type: Buy, AssetID: "AAPL", Date: day("2024-01-02"),
		Quantity: d("10"), UnitPrice: d("100"), Fee: d("5"), Currency: "USD",
	}, nil)
	require.NoError(t, err)
	assert.True(t, s.CashBalances["USD"].Equal(d("-1005")))
	pos := s.Positions["AAPL"]
	require.Len(t, pos.Lots, 1)
	assert.True(t, pos.Quantity().Equal(d("10")))
	assert.Equal(t, "USD", pos.Currency)
}

func TestApply_Sell_FIFORelief(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Buy, AssetID: "AAPL", Date: day("2024-01-01"), Quantity: d("10"), UnitPrice: d("100"), Currency: "USD"}, nil))
	require.NoError(t, s.Apply(Activity{ID: "2", Type: Buy, AssetID: "AAPL", Date: day("2024-01-05"), Quantity: d("10"), UnitPrice: d("120"), Currency: "USD"}, nil))

	err := s.Apply(Activity{ID: "3", Type: Sell, AssetID: "AAPL", Date: day("2024-01-10"), Quantity: d("12"), UnitPrice: d("150"), Fee: d("2"), Currency: "USD"}, nil)
	require.NoError(t, err)

	pos := s.Positions["AAPL"]
	// first lot (10@100) fully consumed, second lot (10@120) partially: 2 consumed, 8 remain
	require.Len(t, pos.Lots, 1)
	assert.True(t, pos.Lots[0].Quantity.Equal(d("8")))
	assert.True(t, s.CashBalances["USD"].Equal(d("-402"))) // -1000 - 1200 + (12*150 - 2)
}

func TestApply_Split_MultipliesQuantityDividesPrice(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Buy, AssetID: "AAPL", Date: day("2024-01-01"), Quantity: d("10"), UnitPrice: d("100"), Currency: "USD"}, nil))
	require.NoError(t, s.Apply(Activity{ID: "2", Type: Split, AssetID: "AAPL", Quantity: d("2"), Currency: "USD"}, nil))

	pos := s.Positions["AAPL"]
	assert.True(t, pos.Lots[0].Quantity.Equal(d("20")))
	assert.True(t, pos.Lots[0].AcquisitionPrice.Equal(d("50")))
	assert.True(t, pos.TotalCostBasis().Equal(d("1000")), "cost basis unchanged by a split")
}

func TestApply_Split_RejectsNonPositiveRatio(t *testing.T) {
	s := NewAccountState("acc1")
	err := s.Apply(Activity{ID: "1", Type: Split, AssetID: "AAPL", Quantity: d("0"), Currency: "USD"}, nil)
	require.Error(t, err)
}

func TestApply_Buy_RequiresAssetID(t *testing.T) {
	s := NewAccountState("acc1")
	err := s.Apply(Activity{ID: "1", Type: Buy, Quantity: d("1"), UnitPrice: d("1"), Currency: "USD"}, nil)
	require.Error(t, err)
	var invalid *InvalidActivityError
	require.ErrorAs(t, err, &invalid)
}

func TestApply_CurrencyMismatchWithoutFXFlagsPositionMixed(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Buy, AssetID: "AAPL", Date: day("2024-01-01"), Quantity: d("10"), UnitPrice: d("100"), Currency: "USD"}, nil))
	// second lot arrives in a different currency with no FX lookup available
	require.NoError(t, s.Apply(Activity{ID: "2", Type: Buy, AssetID: "AAPL", Date: day("2024-01-02"), Quantity: d("5"), UnitPrice: d("80"), Currency: "EUR"}, nil))

	pos := s.Positions["AAPL"]
	assert.True(t, pos.MixedCurrency)
	require.Len(t, s.Warnings, 1)
}

func TestApply_TransferIn_CashAssetIDCreditsCash(t *testing.T) {
	s := NewAccountState("acc1")
	err := s.Apply(Activity{ID: "1", Type: TransferIn, AssetID: "$CASH-USD", Amount: d("500"), Fee: d("1"), Currency: "USD"}, nil)
	require.NoError(t, err)
	assert.True(t, s.CashBalances["USD"].Equal(d("499")))
	assert.Empty(t, s.Positions)
}

func TestApply_TransferIn_EmptyAssetIDTreatedAsCash(t *testing.T) {
	s := NewAccountState("acc1")
	err := s.Apply(Activity{ID: "1", Type: TransferIn, Amount: d("200"), Currency: "USD"}, nil)
	require.NoError(t, err)
	assert.True(t, s.CashBalances["USD"].Equal(d("200")))
}

func TestApply_TransferIn_AssetIDAddsLot(t *testing.T) {
	s := NewAccountState("acc1")
	err := s.Apply(Activity{
		ID: "1", Type: TransferIn, AssetID: "AAPL", Date: day("2024-01-02"),
		Quantity: d("10"), UnitPrice: d("100"), Currency: "USD",
	}, nil)
	require.NoError(t, err)
	pos := s.Positions["AAPL"]
	require.NotNil(t, pos)
	assert.True(t, pos.Quantity().Equal(d("10")))
	assert.True(t, s.CashBalances["USD"].IsZero(), "transferring in an asset does not move cash")
}

func TestApply_TransferOut_CashAssetIDDebitsCash(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: TransferIn, AssetID: "$CASH-USD", Amount: d("500"), Currency: "USD"}, nil))
	err := s.Apply(Activity{ID: "2", Type: TransferOut, AssetID: "$CASH-USD", Amount: d("200"), Fee: d("1"), Currency: "USD"}, nil)
	require.NoError(t, err)
	assert.True(t, s.CashBalances["USD"].Equal(d("299")))
}

func TestApply_TransferOut_AssetIDRelievesFIFO(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Buy, AssetID: "AAPL", Date: day("2024-01-01"), Quantity: d("10"), UnitPrice: d("100"), Currency: "USD"}, nil))
	err := s.Apply(Activity{ID: "2", Type: TransferOut, AssetID: "AAPL", Date: day("2024-01-05"), Quantity: d("4"), Currency: "USD"}, nil)
	require.NoError(t, err)
	pos := s.Positions["AAPL"]
	assert.True(t, pos.Quantity().Equal(d("6")))
}

func TestApply_CurrencyMismatchConvertsWithFXLookup(t *testing.T) {
	s := NewAccountState("acc1")
	require.NoError(t, s.Apply(Activity{ID: "1", Type: Buy, AssetID: "AAPL", Date: day("2024-01-01"), Quantity: d("10"), UnitPrice: d("100"), Currency: "USD"}, nil))

	fx := func(from, to string, date time.Time) (decimal.Decimal, error) {
		return d("1.1"), nil // EUR -> USD
	}
	require.NoError(t, s.Apply(Activity{ID: "2", Type: Buy, AssetID: "AAPL", Date: day("2024-01-02"), Quantity: d("5"), UnitPrice: d("80"), Currency: "EUR"}, fx))

	pos := s.Positions["AAPL"]
	assert.False(t, pos.MixedCurrency)
	require.Len(t, pos.Lots, 2)
	assert.True(t, pos.Lots[1].AcquisitionPrice.Equal(d("88"))) // 80 * 1.1
}
