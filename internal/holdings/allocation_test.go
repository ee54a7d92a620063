package holdings

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

func identityFx(from, to string, at time.Time) (decimal.Decimal, error) {
	return dec("1"), nil
}

func TestBuild_WeightsSumToOne(t *testing.T) {
	positions := []PositionState{
		{AssetID: "AAPL", Quantity: dec("10"), TotalCostBasis: dec("1000"), Currency: "USD"},
	}
	cash := map[string]decimal.Decimal{"USD": dec("500")}
	quotes := func(assetID string) (QuotePair, bool) {
		return QuotePair{Latest: dec("150"), Previous: dec("140"), Currency: "USD"}, true
	}

	out, err := Build(positions, cash, "USD", "USD", time.Now(), quotes, identityFx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	total := dec("0")
	for _, h := range out {
		total = total.Add(h.Weight)
	}
	assert.True(t, total.Sub(dec("1")).Abs().LessThan(dec("0.0001")))
}

func TestBuild_DayChangeComputed(t *testing.T) {
	positions := []PositionState{
		{AssetID: "AAPL", Quantity: dec("10"), TotalCostBasis: dec("1000"), Currency: "USD"},
	}
	quotes := func(assetID string) (QuotePair, bool) {
		return QuotePair{Latest: dec("150"), Previous: dec("140"), Currency: "USD"}, true
	}

	out, err := Build(positions, nil, "USD", "USD", time.Now(), quotes, identityFx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].DayChange.Equal(dec("100"))) // (150-140)*10
}

func TestAggregateByTaxonomy_UnassignedFallsToUnknown(t *testing.T) {
	holdings := []Holding{
		{AssetID: "AAPL", Type: HoldingAsset, MarketValue: DualAmount{Base: dec("1000")}},
	}
	alloc := AggregateByTaxonomy(holdings, "sectors", "Sectors", "#000", nil, nil, dec("1000"), false)
	require.Len(t, alloc.Categories, 1)
	assert.Equal(t, "Unknown", alloc.Categories[0].CategoryName)
}

func TestAggregateByTaxonomy_RollupToTopLevel(t *testing.T) {
	categories := []Category{
		{ID: "tech", Name: "Technology"},
		{ID: "software", ParentID: "tech", Name: "Software"},
	}
	assignments := map[string][]Assignment{
		"AAPL": {{TaxonomyID: "sectors", CategoryID: "software", WeightBP: 10000}},
	}
	holdings := []Holding{
		{AssetID: "AAPL", Type: HoldingAsset, MarketValue: DualAmount{Base: dec("1000")}},
	}
	alloc := AggregateByTaxonomy(holdings, "sectors", "Sectors", "#000", categories, assignments, dec("1000"), true)
	require.Len(t, alloc.Categories, 1)
	assert.Equal(t, "tech", alloc.Categories[0].CategoryID)
}

func TestAssetClassAllocation_AddsSyntheticCashCategory(t *testing.T) {
	holdings := []Holding{
		{AssetID: "AAPL", Type: HoldingAsset, MarketValue: DualAmount{Base: dec("800")}},
		{AssetID: "$CASH-USD", Type: HoldingCash, MarketValue: DualAmount{Base: dec("200")}},
	}
	alloc := AssetClassAllocation(holdings, "asset_classes", "Asset Classes", "#000", nil, nil, dec("1000"))

	var cash *CategoryAllocation
	for i := range alloc.Categories {
		if alloc.Categories[i].CategoryID == "CASH" {
			cash = &alloc.Categories[i]
		}
	}
	require.NotNil(t, cash)
	assert.True(t, cash.Value.Equal(dec("200")))
	assert.True(t, cash.Percentage.Equal(dec("20")))
}

func TestConcentration_SingleHoldingHHIIsOne(t *testing.T) {
	holdings := []Holding{{Weight: dec("1")}}
	stats := Concentration(holdings)
	assert.InDelta(t, 1.0, stats.HerfindahlIndex, 0.0001)
	assert.InDelta(t, 1.0, stats.TopHoldingWeight, 0.0001)
}
