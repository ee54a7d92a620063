package fx

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConverter_DirectRate(t *testing.T) {
	c, err := NewConverter([]Rate{
		{From: "USD", To: "EUR", Date: day(2024, 10, 26), Value: dec("0.85")},
	})
	require.NoError(t, err)

	rate, err := c.Rate("USD", "EUR", day(2024, 10, 26))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("0.85")))
}

func TestConverter_InverseRate(t *testing.T) {
	c, err := NewConverter([]Rate{
		{From: "USD", To: "EUR", Date: day(2024, 10, 26), Value: dec("0.85")},
	})
	require.NoError(t, err)

	rate, err := c.Rate("EUR", "USD", day(2024, 10, 26))
	require.NoError(t, err)
	assert.True(t, rate.Sub(money.One.Div(dec("0.85"))).Abs().LessThan(dec("0.0000000001")))
}

func TestConverter_TransitiveClosure_E2E3(t *testing.T) {
	c, err := NewConverter([]Rate{
		{From: "USD", To: "EUR", Date: day(2024, 10, 26), Value: dec("0.85")},
		{From: "EUR", To: "GBP", Date: day(2024, 10, 26), Value: dec("0.90")},
	})
	require.NoError(t, err)

	got, err := c.Convert(dec("100"), "USD", "GBP", day(2024, 10, 26))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("76.5")), "got %s", got)
}

func TestConverter_NearestDate_E2E4(t *testing.T) {
	c, err := NewConverter([]Rate{
		{From: "USD", To: "EUR", Date: day(2024, 10, 27), Value: dec("0.86")},
	})
	require.NoError(t, err)

	rate, err := c.Rate("USD", "EUR", day(2024, 10, 30))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("0.86")))
}

func TestConverter_NearestDate_PrefersEarlierOnTie(t *testing.T) {
	// target day 10; prev day 8 (distance 2), next day 12 (distance 2) -> tie, prefer prev.
	c, err := NewConverter([]Rate{
		{From: "USD", To: "EUR", Date: day(2024, 1, 8), Value: dec("0.80")},
		{From: "USD", To: "EUR", Date: day(2024, 1, 12), Value: dec("0.90")},
	})
	require.NoError(t, err)

	rate, err := c.Rate("USD", "EUR", day(2024, 1, 10))
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("0.80")), "expected earlier rate on tie, got %s", rate)
}

func TestConverter_SameCurrencyIdentity(t *testing.T) {
	c, err := NewConverter(nil)
	require.NoError(t, err)

	rate, err := c.Rate("USD", "USD", day(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.One))
}

func TestConverter_MinorUnitNormalization_E2E(t *testing.T) {
	c, err := NewConverter([]Rate{
		{From: "GBP", To: "USD", Date: day(2024, 1, 1), Value: dec("1.25")},
	})
	require.NoError(t, err)

	viaMinor, err := c.Convert(dec("100"), "GBp", "USD", day(2024, 1, 1))
	require.NoError(t, err)
	viaMajor, err := c.Convert(dec("1"), "GBP", "USD", day(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, viaMinor.Equal(viaMajor), "100 GBp should equal 1 GBP: %s vs %s", viaMinor, viaMajor)
}

func TestConverter_RateNotFound(t *testing.T) {
	c, err := NewConverter(nil)
	require.NoError(t, err)

	_, err = c.Rate("USD", "JPY", day(2024, 1, 1))
	require.Error(t, err)
	var notFound *ErrRateNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestConverter_ConflictingRatesRejectDay(t *testing.T) {
	_, err := NewConverter([]Rate{
		{From: "USD", To: "EUR", Date: day(2024, 1, 1), Value: dec("0.85")},
		{From: "USD", To: "EUR", Date: day(2024, 1, 1), Value: dec("0.90")},
	})
	require.Error(t, err)
}
