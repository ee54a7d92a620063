package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesResolver_EquityTorontoYahoo(t *testing.T) {
	r := NewRulesResolver()
	pi, ok := r.Resolve(InstrumentID{Kind: KindEquity, Ticker: "SHOP", MIC: "XTSE"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("SHOP.TO"), pi)
}

func TestRulesResolver_EquityTorontoAlphaVantage(t *testing.T) {
	r := NewRulesResolver()
	pi, ok := r.Resolve(InstrumentID{Kind: KindEquity, Ticker: "SHOP", MIC: "XTSE"}, ProviderAlphaVantage)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("SHOP.TRT"), pi)
}

func TestRulesResolver_EquityUSVenueEmptySuffix(t *testing.T) {
	r := NewRulesResolver()
	pi, ok := r.Resolve(InstrumentID{Kind: KindEquity, Ticker: "AAPL", MIC: "XNAS"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("AAPL"), pi)
}

func TestRulesResolver_Crypto(t *testing.T) {
	r := NewRulesResolver()
	pi, ok := r.Resolve(InstrumentID{Kind: KindCrypto, Base: "BTC", Quote: "USD"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("BTC-USD"), pi)
}

func TestRulesResolver_Fx(t *testing.T) {
	r := NewRulesResolver()
	pi, ok := r.Resolve(InstrumentID{Kind: KindFx, Base: "EUR", Quote: "USD"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("EURUSD=X"), pi)
}

func TestRulesResolver_Metal(t *testing.T) {
	r := NewRulesResolver()
	pi, ok := r.Resolve(InstrumentID{Kind: KindMetal, MetalCode: "GOLD"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("GC=F"), pi)
}

func TestChain_OverrideWinsFirst(t *testing.T) {
	override := NewOverrideResolver(map[OverrideKey]ProviderInstrument{
		{Symbol: "SHOP", Provider: ProviderYahoo}: "SHOP.CUSTOM",
	})
	rules := NewRulesResolver()
	chain := NewChain(override, rules)

	pi, ok := chain.Resolve(InstrumentID{Kind: KindEquity, Ticker: "SHOP", MIC: "XTSE"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("SHOP.CUSTOM"), pi)
}

func TestChain_FallsThroughToRules(t *testing.T) {
	override := NewOverrideResolver(nil)
	rules := NewRulesResolver()
	chain := NewChain(override, rules)

	pi, ok := chain.Resolve(InstrumentID{Kind: KindEquity, Ticker: "SHOP", MIC: "XTSE"}, ProviderYahoo)
	assert.True(t, ok)
	assert.Equal(t, ProviderInstrument("SHOP.TO"), pi)
}

func TestChain_UnresolvedFallsThroughAll(t *testing.T) {
	override := NewOverrideResolver(nil)
	rules := NewRulesResolver()
	search := NewSearchResolver(nil)
	chain := NewChain(override, rules, search)

	_, ok := chain.Resolve(InstrumentID{Kind: KindEquity, Ticker: "SHOP", MIC: "XUNKNOWN"}, ProviderYahoo)
	assert.False(t, ok)
}
