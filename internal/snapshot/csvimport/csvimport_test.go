package csvimport

import (
	"strings"
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

func idFor(accountID string, date time.Time) string {
	return accountID + "-" + date.Format("2006-01-02")
}

func TestImport_ParsesPositionsAndCash(t *testing.T) {
	csv := `date,symbol,quantity,price,currency,cash_USD,cash_EUR
2024-01-01,AAPL,10,150.5,USD,1000,50
2024-01-01,MSFT,5,300,USD,,
`
	result, err := Import(strings.NewReader(csv), "acc1", idFor, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Snapshots, 1)
	snap := result.Snapshots[0]

	assert.Len(t, snap.Positions, 2)
	assert.True(t, snap.Positions["AAPL"].Quantity.Equal(dec("10")))
	assert.True(t, snap.CashBalances["USD"].Equal(dec("1000")))
	assert.True(t, snap.CashBalances["EUR"].Equal(dec("50")))
	assert.Empty(t, result.Errors)
}

func TestImport_BadRowDoesNotFailFile(t *testing.T) {
	csv := `date,symbol,quantity,price,currency
2024-01-01,AAPL,not-a-number,150,USD
2024-01-01,MSFT,5,300,USD
`
	result, err := Import(strings.NewReader(csv), "acc1", idFor, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Len(t, result.Snapshots, 1)
	assert.Contains(t, result.Snapshots[0].Positions, "MSFT")
	assert.NotContains(t, result.Snapshots[0].Positions, "AAPL")
}

func TestImport_FloatFallbackForScientificNotation(t *testing.T) {
	csv := `date,symbol,quantity,price,currency
2024-01-01,AAPL,1e1,150,USD
`
	result, err := Import(strings.NewReader(csv), "acc1", idFor, time.Now())
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Snapshots, 1)
	assert.True(t, result.Snapshots[0].Positions["AAPL"].Quantity.Equal(dec("10")))
}
