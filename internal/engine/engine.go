// Package engine orchestrates the domain packages (ledger, snapshot,
// valuation, fx, quotes, holdings) into the recompute pipeline §4.I's
// event worker drives and the read paths the HTTP layer serves. It is the
// one place that knows how those packages compose; each domain package
// itself stays ignorant of the others.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/fx"
	"github.com/afadil/wealthfolio-sub004/internal/holdings"
	"github.com/afadil/wealthfolio-sub004/internal/ledger"
	"github.com/afadil/wealthfolio-sub004/internal/marketdata"
	"github.com/afadil/wealthfolio-sub004/internal/portfolio"
	"github.com/afadil/wealthfolio-sub004/internal/quotes"
	"github.com/afadil/wealthfolio-sub004/internal/snapshot"
	"github.com/afadil/wealthfolio-sub004/internal/valuation"
)

// Service is the portfolio recompute engine: one instance per process,
// wired at startup in cmd/server/main.go's two-phase init (§9).
type Service struct {
	log zerolog.Logger

	baseCurrencyMu sync.RWMutex
	baseCurrency   string

	accounts   portfolio.AccountRepository
	assets     portfolio.AssetRepository
	activities ledger.Repository

	snapshotRepo  snapshot.Repository
	snapshotStore snapshot.Store
	replayer      *snapshot.Replayer

	valuations    valuation.Repository
	valuationSvc  *valuation.Service

	quoteStore    quotes.Store
	quoteSyncRepo quotes.Repository

	taxonomies holdings.TaxonomyRepository

	fxSvc    *fx.Service
	registry *marketdata.Registry // may be nil: market sync becomes a no-op
}

// Config bundles every collaborator Service needs. Registry is optional;
// when nil, SyncMarketData logs and returns without error.
type Config struct {
	BaseCurrency string

	Accounts   portfolio.AccountRepository
	Assets     portfolio.AssetRepository
	Activities ledger.Repository

	SnapshotRepo  snapshot.Repository
	SnapshotStore snapshot.Store

	Valuations valuation.Repository

	QuoteStore    quotes.Store
	QuoteSyncRepo quotes.Repository

	Taxonomies holdings.TaxonomyRepository

	FxService *fx.Service
	Registry  *marketdata.Registry
}

// NewService builds the orchestrator over cfg's collaborators.
func NewService(cfg Config, log zerolog.Logger) *Service {
	log = log.With().Str("component", "engine").Logger()
	replayer := snapshot.NewReplayer(cfg.SnapshotRepo, genSnapshotID, time.Now)
	return &Service{
		log:           log,
		baseCurrency:  cfg.BaseCurrency,
		accounts:      cfg.Accounts,
		assets:        cfg.Assets,
		activities:    cfg.Activities,
		snapshotRepo:  cfg.SnapshotRepo,
		snapshotStore: cfg.SnapshotStore,
		replayer:      replayer,
		valuations:    cfg.Valuations,
		valuationSvc:  valuation.NewService(cfg.Valuations, log),
		quoteStore:    cfg.QuoteStore,
		quoteSyncRepo: cfg.QuoteSyncRepo,
		taxonomies:    cfg.Taxonomies,
		fxSvc:         cfg.FxService,
		registry:      cfg.Registry,
	}
}

// BaseCurrency returns the reporting currency, guarded per §5's
// sync.RWMutex-held-base-currency requirement.
func (s *Service) BaseCurrency() string {
	s.baseCurrencyMu.RLock()
	defer s.baseCurrencyMu.RUnlock()
	return s.baseCurrency
}

// SetBaseCurrency updates the reporting currency for subsequent recomputes.
func (s *Service) SetBaseCurrency(code string) {
	s.baseCurrencyMu.Lock()
	s.baseCurrency = code
	s.baseCurrencyMu.Unlock()
}

func genSnapshotID(accountID string, date time.Time) string {
	return accountID + ":" + date.UTC().Format("2006-01-02")
}

// fxRate adapts fx.Service into the per-package FxLookup signatures
// ledger/snapshot/valuation/holdings each declare independently.
func (s *Service) fxRate(from, to string, date time.Time) (decimal.Decimal, error) {
	return s.fxSvc.GetExchangeRateForDate(from, to, date)
}

func (s *Service) ledgerFxLookup(from, to string, date time.Time) (decimal.Decimal, error) {
	return s.fxRate(from, to, date)
}

func (s *Service) valuationFxLookup(from, to string, date time.Time) (decimal.Decimal, error) {
	return s.fxRate(from, to, date)
}

func (s *Service) holdingsFxLookup(from, to string, at time.Time) (decimal.Decimal, error) {
	return s.fxRate(from, to, at)
}

// resolveAccountIDs returns accountIDs unchanged when non-empty, else every
// non-archived account — the "broad" scope §4.I's planners signal with a
// nil AccountIDs slice.
func (s *Service) resolveAccountIDs(ctx context.Context, accountIDs []string) ([]string, error) {
	if len(accountIDs) > 0 {
		return accountIDs, nil
	}
	accounts, err := s.accounts.ListNonArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing non-archived accounts: %w", err)
	}
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// SyncMarketData refreshes quotes for assetIDs (every tracked asset when
// empty) through the provider registry. A nil registry means no provider
// framework is configured for this process; the sync is a logged no-op.
func (s *Service) SyncMarketData(ctx context.Context, assetIDs []string) error {
	if s.registry == nil {
		s.log.Debug().Msg("no market-data registry configured, skipping sync")
		return nil
	}

	targets := assetIDs
	if len(targets) == 0 {
		assets, err := s.assets.List(ctx)
		if err != nil {
			return fmt.Errorf("listing assets for market sync: %w", err)
		}
		for _, a := range assets {
			if a.Class == portfolio.AssetCash {
				continue
			}
			targets = append(targets, a.ID)
		}
	}

	var rows []quotes.StoredQuote
	for _, assetID := range targets {
		asset, err := s.assets.Get(ctx, assetID)
		if err != nil || asset == nil {
			continue
		}
		instrument := marketdata.InstrumentID{Kind: marketdata.KindEquity, Ticker: asset.Symbol, MIC: asset.MIC}
		q, err := s.registry.GetLatestQuote(ctx, instrument)
		if err != nil {
			s.log.Warn().Err(err).Str("asset_id", assetID).Msg("market data sync failed for asset")
			continue
		}
		rows = append(rows, quotes.StoredQuote{
			AssetID:  assetID,
			Date:     time.Unix(q.Timestamp, 0).UTC(),
			Open:     q.Open,
			High:     q.High,
			Low:      q.Low,
			Close:    q.Close,
			Volume:   q.Volume,
			Currency: q.Currency,
			Source:   string(q.Source),
		})
	}

	if len(rows) == 0 {
		return nil
	}
	return s.quoteStore.UpsertMany(ctx, rows)
}

// RecomputeSnapshots rebuilds Calculated snapshots for accountIDs (every
// non-archived account when nil) from their full activity history.
func (s *Service) RecomputeSnapshots(ctx context.Context, accountIDs []string) error {
	ids, err := s.resolveAccountIDs(ctx, accountIDs)
	if err != nil {
		return err
	}

	for _, accountID := range ids {
		activities, err := s.activities.ListByAccount(ctx, []string{accountID}, ledger.Filter{}, ledger.Sort{Field: "date"}, ledger.Page{})
		if err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to list activities, skipping recompute")
			continue
		}
		if len(activities) == 0 {
			continue
		}

		start := activities[0].Date
		for _, a := range activities {
			if a.Date.Before(start) {
				start = a.Date
			}
		}
		end := time.Now().UTC()

		if err := s.replayer.Replay(accountID, activities, start, end, nil, s.ledgerFxLookup); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("snapshot replay failed")
		}
	}
	return nil
}

// RecomputeTotalSnapshot rebuilds the synthetic TOTAL snapshot by
// aggregating every non-archived account's latest snapshot.
func (s *Service) RecomputeTotalSnapshot(ctx context.Context) error {
	accounts, err := s.accounts.ListNonArchived(ctx)
	if err != nil {
		return fmt.Errorf("listing non-archived accounts: %w", err)
	}

	now := time.Now().UTC()
	var accountSnapshots []snapshot.AccountStateSnapshot
	for _, a := range accounts {
		snap, err := s.snapshotStore.LatestFor(a.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("account_id", a.ID).Msg("failed to load latest snapshot for TOTAL aggregation")
			continue
		}
		if snap == nil {
			continue
		}
		accountSnapshots = append(accountSnapshots, *snap)
	}

	total := snapshot.AggregateTotal(accountSnapshots, now, portfolio.TotalAccountID+":"+now.Format("2006-01-02"), now)
	return s.snapshotStore.Upsert(total)
}

// UpdateQuoteSyncStates marks every symbol held with a nonzero quantity in
// the latest TOTAL snapshot as active, creating its sync state if none
// exists. Symbols with zero quantity or absent from TOTAL are left as they
// are; nothing here marks a symbol closed.
func (s *Service) UpdateQuoteSyncStates(ctx context.Context) error {
	total, err := s.snapshotStore.LatestFor(portfolio.TotalAccountID)
	if err != nil {
		return fmt.Errorf("loading TOTAL snapshot: %w", err)
	}
	if total == nil {
		return nil
	}

	now := time.Now().UTC()
	for assetID, fin := range total.Positions {
		if fin.Quantity.IsZero() {
			continue
		}
		asset, err := s.assets.Get(ctx, assetID)
		if err != nil || asset == nil {
			continue
		}

		state, err := s.quoteSyncRepo.Get(ctx, asset.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("failed to load quote sync state")
			continue
		}
		if state == nil {
			state = quotes.NewSyncState(asset.Symbol, asset.DataSource, now)
		}
		state.MarkActive(now)
		if err := s.quoteSyncRepo.Upsert(ctx, state); err != nil {
			s.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("failed to persist quote sync state")
		}
	}
	return nil
}

// RecomputeValuations rebuilds valuation history for accountIDs plus TOTAL
// (every non-archived account when nil), incrementally from each
// account's last stored valuation date.
func (s *Service) RecomputeValuations(ctx context.Context, accountIDs []string) error {
	ids, err := s.resolveAccountIDs(ctx, accountIDs)
	if err != nil {
		return err
	}
	ids = append(ids, portfolio.TotalAccountID)

	base := s.BaseCurrency()
	for _, accountID := range ids {
		if err := s.recomputeAccountValuation(ctx, accountID, base); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("valuation recompute failed")
		}
	}
	return nil
}

func (s *Service) recomputeAccountValuation(ctx context.Context, accountID, baseCurrency string) error {
	accountCurrency := baseCurrency
	if accountID != portfolio.TotalAccountID {
		account, err := s.accounts.Get(ctx, accountID)
		if err != nil {
			return fmt.Errorf("loading account: %w", err)
		}
		if account == nil {
			return nil
		}
		accountCurrency = account.Currency
	}

	oldest, err := s.snapshotStore.LatestFor(accountID)
	if err != nil {
		return fmt.Errorf("loading latest snapshot: %w", err)
	}
	if oldest == nil {
		return nil
	}

	start, err := valuation.ActualStart(ctx, s.valuations, accountID, oldest.Date)
	if err != nil {
		return err
	}
	end := oldest.Date
	if start.After(end) {
		return nil
	}

	snaps, err := s.snapshotStore.Between(accountID, &start, &end)
	if err != nil {
		return fmt.Errorf("loading snapshot range: %w", err)
	}

	inputs := make([]valuation.SnapshotInput, 0, len(snaps))
	for _, snap := range snaps {
		positions := make([]valuation.PositionInput, 0, len(snap.Positions))
		for assetID, fin := range snap.Positions {
			if fin.Quantity.IsZero() {
				continue
			}
			positions = append(positions, valuation.PositionInput{
				AssetID:        assetID,
				Quantity:       fin.Quantity,
				TotalCostBasis: fin.TotalCostBasis,
				Currency:       fin.Currency,
			})
		}
		inputs = append(inputs, valuation.SnapshotInput{
			AccountID:       accountID,
			AccountCurrency: accountCurrency,
			Date:            snap.Date,
			Positions:       positions,
			CashBalances:    snap.CashBalances,
		})
	}

	idFor := func(accountID string, date time.Time) string {
		return accountID + ":" + date.UTC().Format("2006-01-02")
	}
	return s.valuationSvc.ComposeRange(ctx, inputs, baseCurrency, idFor, s.quoteLookupForValuation(ctx), s.valuationFxLookup, time.Now())
}

// quoteLookupForValuation adapts the quote store into valuation.QuoteLookup,
// distinguishing "no history at all" (value at zero) from "data gap today"
// (skip the day) per §4.G.
func (s *Service) quoteLookupForValuation(ctx context.Context) valuation.QuoteLookup {
	return func(assetID string, date time.Time) (valuation.Quote, bool, bool) {
		rows, err := s.quoteStore.GetInRange(ctx, []string{assetID}, date, date)
		if err != nil {
			return valuation.Quote{}, false, false
		}
		if len(rows) > 0 {
			return valuation.Quote{Close: decimal.NewFromFloat(rows[0].Close), Currency: rows[0].Currency}, true, true
		}

		pair, err := s.quoteStore.LatestPair(ctx, []string{assetID})
		if err != nil {
			return valuation.Quote{}, false, false
		}
		_, hasAny := pair[assetID]
		return valuation.Quote{}, false, hasAny
	}
}

// EnrichAssets loads each requested asset and logs the request; it does
// not look up or persist any metadata. It runs fire-and-forget from the
// event worker.
func (s *Service) EnrichAssets(ctx context.Context, assetIDs []string) {
	for _, assetID := range assetIDs {
		asset, err := s.assets.Get(ctx, assetID)
		if err != nil || asset == nil {
			s.log.Warn().Err(err).Str("asset_id", assetID).Msg("asset enrichment: could not load asset")
			continue
		}
		s.log.Debug().Str("asset_id", assetID).Msg("asset enrichment requested (provider metadata lookup is a future extension point)")
	}
}

// SyncBroker is a logged no-op: the broker-sync cloud client is out of
// scope (spec Non-goals). Only the planning/event shape survives.
func (s *Service) SyncBroker(ctx context.Context, accountIDs []string) {
	s.log.Info().Strs("account_ids", accountIDs).Msg("broker sync requested but no broker client is configured; skipping")
}
