// Package marketdata defines the provider abstraction, instrument-id
// resolver chain, rate limiter, circuit breaker, and quote validator
// described in SPEC_FULL.md §4.C.
package marketdata

import "context"

// InstrumentKind distinguishes the broad category of tradable instrument.
type InstrumentKind string

const (
	KindEquity InstrumentKind = "EQUITY"
	KindCrypto InstrumentKind = "CRYPTO"
	KindFx     InstrumentKind = "FX"
	KindMetal  InstrumentKind = "METAL"
)

// InstrumentID is the provider-agnostic identity of a tradable instrument.
// Exactly one of the kind-specific fields is meaningful, selected by Kind.
type InstrumentID struct {
	Kind InstrumentKind

	// Equity
	Ticker string
	MIC    string // optional market-identifier code

	// Crypto / Fx
	Base  string
	Quote string

	// Metal
	MetalCode string
}

// ProviderID identifies a concrete data source.
type ProviderID string

const (
	ProviderYahoo        ProviderID = "YAHOO"
	ProviderMarketDataApp ProviderID = "MARKETDATA_APP"
	ProviderAlphaVantage ProviderID = "ALPHA_VANTAGE"
)

// Quote is one OHLCV observation. Close is required; the rest are optional.
type Quote struct {
	AssetID   string
	Timestamp int64 // unix seconds, UTC, day-resolved
	Open      *float64
	High      *float64
	Low       *float64
	Close     float64
	Volume    *float64
	Currency  string
	Source    ProviderID
}

// Capabilities describes what a provider can do.
type Capabilities struct {
	InstrumentKinds   []InstrumentKind
	SupportsLatest    bool
	SupportsHistorical bool
	SupportsSearch    bool
}

// RateLimit describes a provider's throttling contract.
type RateLimit struct {
	RequestsPerMinute int
	MaxConcurrency    int
	MinDelayMillis    int
}

// Provider is satisfied by every concrete market-data source.
type Provider interface {
	ID() ProviderID
	Priority() uint8 // lower means preferred
	Capabilities() Capabilities
	RateLimit() RateLimit
	GetLatestQuote(ctx context.Context, instrument ProviderInstrument) (Quote, error)
	GetHistoricalQuotes(ctx context.Context, instrument ProviderInstrument, start, end int64) ([]Quote, error)
}

// ProviderInstrument is the provider-native form of an instrument id, e.g.
// "SHOP.TO" for Yahoo or "EURUSD=X".
type ProviderInstrument string
