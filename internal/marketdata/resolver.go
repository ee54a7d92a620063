package marketdata

import "fmt"

// OverrideKey addresses a user override entry.
type OverrideKey struct {
	Symbol   string
	Provider ProviderID
}

// Resolver turns an InstrumentID into a provider-native ProviderInstrument.
// Resolve returns ok=false when this resolver has no opinion, letting the
// chain fall through to the next one.
type Resolver interface {
	Resolve(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool)
}

// OverrideResolver is consulted first: an explicit user mapping always wins.
type OverrideResolver struct {
	overrides map[OverrideKey]ProviderInstrument
}

// NewOverrideResolver builds a resolver from a pre-loaded override map.
func NewOverrideResolver(overrides map[OverrideKey]ProviderInstrument) *OverrideResolver {
	if overrides == nil {
		overrides = make(map[OverrideKey]ProviderInstrument)
	}
	return &OverrideResolver{overrides: overrides}
}

func (r *OverrideResolver) Resolve(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	symbol := instrument.Ticker
	if symbol == "" {
		symbol = instrument.MetalCode
	}
	pi, ok := r.overrides[OverrideKey{Symbol: symbol, Provider: provider}]
	return pi, ok
}

// RulesResolver applies the deterministic MIC->suffix map and per-provider
// formatting conventions (equity/crypto/fx/metal).
type RulesResolver struct{}

func NewRulesResolver() *RulesResolver { return &RulesResolver{} }

func (r *RulesResolver) Resolve(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	switch instrument.Kind {
	case KindEquity:
		return r.resolveEquity(instrument, provider)
	case KindCrypto:
		return r.resolveCrypto(instrument, provider)
	case KindFx:
		return r.resolveFx(instrument, provider)
	case KindMetal:
		return r.resolveMetal(instrument, provider)
	default:
		return "", false
	}
}

func (r *RulesResolver) resolveEquity(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	if instrument.Ticker == "" {
		return "", false
	}
	if instrument.MIC == "" {
		// No venue information: pass the bare ticker through untouched.
		return ProviderInstrument(instrument.Ticker), true
	}
	suffix, ok := SuffixFor(instrument.MIC, provider)
	if !ok {
		return "", false
	}
	return ProviderInstrument(instrument.Ticker + suffix), true
}

func (r *RulesResolver) resolveCrypto(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	if instrument.Base == "" || instrument.Quote == "" {
		return "", false
	}
	switch provider {
	case ProviderYahoo:
		return ProviderInstrument(fmt.Sprintf("%s-%s", instrument.Base, instrument.Quote)), true
	case ProviderAlphaVantage:
		return ProviderInstrument(fmt.Sprintf("%s%s", instrument.Base, instrument.Quote)), true
	default:
		return "", false
	}
}

func (r *RulesResolver) resolveFx(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	if instrument.Base == "" || instrument.Quote == "" {
		return "", false
	}
	switch provider {
	case ProviderYahoo:
		return ProviderInstrument(fmt.Sprintf("%s%s=X", instrument.Base, instrument.Quote)), true
	case ProviderAlphaVantage:
		return ProviderInstrument(fmt.Sprintf("%s%s", instrument.Base, instrument.Quote)), true
	default:
		return "", false
	}
}

func (r *RulesResolver) resolveMetal(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	if provider != ProviderYahoo {
		return "", false
	}
	symbol, ok := metalFuturesSymbols[instrument.MetalCode]
	if !ok {
		return "", false
	}
	return ProviderInstrument(symbol), true
}

// SearchResolver is the last-resort fallback: provider-specific symbol
// search. It is pluggable per provider; the default never finds anything,
// letting callers decide whether unresolved instruments are hard errors.
type SearchResolver struct {
	search func(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool)
}

// NewSearchResolver wraps a provider-supplied search function.
func NewSearchResolver(search func(InstrumentID, ProviderID) (ProviderInstrument, bool)) *SearchResolver {
	if search == nil {
		search = func(InstrumentID, ProviderID) (ProviderInstrument, bool) { return "", false }
	}
	return &SearchResolver{search: search}
}

func (r *SearchResolver) Resolve(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	return r.search(instrument, provider)
}

// Chain resolves an instrument by trying each Resolver in order and
// returning the first one that yields a result.
type Chain struct {
	resolvers []Resolver
}

// NewChain builds a resolver chain. The canonical ordering per
// SPEC_FULL.md §4.C is: override, rules, search.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Resolve returns the first non-empty resolution, or ok=false if every
// resolver in the chain declined.
func (c *Chain) Resolve(instrument InstrumentID, provider ProviderID) (ProviderInstrument, bool) {
	for _, r := range c.resolvers {
		if pi, ok := r.Resolve(instrument, provider); ok {
			return pi, true
		}
	}
	return "", false
}
