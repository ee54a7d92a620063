// Package events implements the domain-event sink and debounced worker that
// turn ledger/snapshot/FX mutations into planned portfolio-recompute work
// (§4.I). Producers emit events synchronously into a bounded sink; a single
// consumer debounces them into batches and drives the recompute pipeline.
package events

// DomainEvent is one fact a producer observed. The set is closed: every
// variant below is a concrete type implementing the marker method, not an
// open interface callers can extend.
type DomainEvent interface {
	isDomainEvent()
}

// ActivitySaved fires when a single activity is inserted or updated.
type ActivitySaved struct {
	AccountID string
}

// ActivitiesImported fires after a batch import (e.g. CSV) lands.
type ActivitiesImported struct {
	AccountIDs []string
}

// SnapshotSource identifies what produced a SnapshotSaved event.
type SnapshotSource string

const (
	SnapshotSourceManual       SnapshotSource = "MANUAL"
	SnapshotSourceBrokerImport SnapshotSource = "BROKER_IMPORT"
	SnapshotSourceCSVImport    SnapshotSource = "CSV_IMPORT"
)

// SnapshotSaved fires when a keyframe snapshot (not a Calculated one) is
// written directly, outside the normal replay path.
type SnapshotSaved struct {
	AccountID string
	Source    SnapshotSource
}

// AccountTrackingModeChanged fires when an account switches how its
// positions are kept in sync (e.g. manual <-> broker-tracked).
type AccountTrackingModeChanged struct {
	AccountID string
	Old, New  string
}

// AssetEnrichmentRequested fires when one or more assets need metadata
// (class, sector, region) backfilled from a reference data source.
type AssetEnrichmentRequested struct {
	AssetIDs []string
}

// FxRatesUpdated fires after the FX service reloads its converter from a
// fresh rate table.
type FxRatesUpdated struct{}

// QuotesUpdated fires after a quote sync writes new OHLCV rows.
type QuotesUpdated struct {
	AssetIDs []string
}

// PortfolioRecalcRequested fires on an explicit forced recalculation.
// Empty AccountIDs means every non-archived account plus TOTAL.
type PortfolioRecalcRequested struct {
	AccountIDs []string
}

func (ActivitySaved) isDomainEvent()             {}
func (ActivitiesImported) isDomainEvent()        {}
func (SnapshotSaved) isDomainEvent()             {}
func (AccountTrackingModeChanged) isDomainEvent() {}
func (AssetEnrichmentRequested) isDomainEvent()  {}
func (FxRatesUpdated) isDomainEvent()            {}
func (QuotesUpdated) isDomainEvent()             {}
func (PortfolioRecalcRequested) isDomainEvent()  {}
