package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/holdings"
	"github.com/afadil/wealthfolio-sub004/internal/portfolio"
	"github.com/afadil/wealthfolio-sub004/internal/quotes"
)

// GetHoldings composes the current holdings view for accountID ("TOTAL" is
// the synthetic aggregate pseudo-account).
func (s *Service) GetHoldings(ctx context.Context, accountID string) ([]holdings.Holding, error) {
	snap, err := s.snapshotStore.LatestFor(accountID)
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil
	}

	accountCurrency := s.BaseCurrency()
	if accountID != portfolio.TotalAccountID {
		account, err := s.accounts.Get(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("loading account: %w", err)
		}
		if account == nil {
			return nil, nil
		}
		accountCurrency = account.Currency
	}

	positions := make([]holdings.PositionState, 0, len(snap.Positions))
	assetIDs := make([]string, 0, len(snap.Positions))
	for assetID, fin := range snap.Positions {
		if fin.Quantity.IsZero() {
			continue
		}
		positions = append(positions, holdings.PositionState{
			AssetID:        assetID,
			Quantity:       fin.Quantity,
			TotalCostBasis: fin.TotalCostBasis,
			Currency:       fin.Currency,
		})
		assetIDs = append(assetIDs, assetID)
	}

	pairs, err := s.quoteStore.LatestPair(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("loading latest quotes: %w", err)
	}

	quoteLookup := func(assetID string) (holdings.QuotePair, bool) {
		pair, ok := pairs[assetID]
		if !ok {
			return holdings.QuotePair{}, false
		}
		prev := pair.Latest.Close
		if pair.HasPrevious {
			prev = pair.Previous.Close
		}
		return holdings.QuotePair{
			Latest:   decimal.NewFromFloat(pair.Latest.Close),
			Previous: decimal.NewFromFloat(prev),
			Currency: pair.Latest.Currency,
		}, true
	}

	return holdings.Build(positions, snap.CashBalances, accountCurrency, s.BaseCurrency(), time.Now(), quoteLookup, s.holdingsFxLookup)
}

// GetAllocations rolls accountID's current holdings up across every
// configured taxonomy. A taxonomy named "Asset Class" additionally folds
// in a synthetic Cash category; every other taxonomy rolls categories up
// to their top-level ancestor (sector/region-style hierarchies).
func (s *Service) GetAllocations(ctx context.Context, accountID string) ([]holdings.TaxonomyAllocation, error) {
	held, err := s.GetHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	taxonomies, err := s.taxonomies.TaxonomiesWithCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomies: %w", err)
	}

	assignmentsByAsset := make(map[string][]holdings.Assignment)
	for _, h := range held {
		if h.Type == holdings.HoldingCash {
			continue
		}
		assignments, err := s.taxonomies.AssignmentsForAsset(ctx, h.AssetID)
		if err != nil {
			return nil, fmt.Errorf("loading assignments for %s: %w", h.AssetID, err)
		}
		for i := range assignments {
			assignments[i].AssetID = h.AssetID
		}
		assignmentsByAsset[h.AssetID] = assignments
	}

	totalWithCash := holdings.TotalValue(held)
	totalAssetsOnly := holdings.TotalAssetValue(held)

	out := make([]holdings.TaxonomyAllocation, 0, len(taxonomies))
	for _, t := range taxonomies {
		color := "#808080"
		if len(t.Categories) > 0 {
			color = t.Categories[0].Color
		}
		if strings.EqualFold(t.Name, "Asset Class") {
			out = append(out, holdings.AssetClassAllocation(held, t.ID, t.Name, color, t.Categories, assignmentsByAsset, totalWithCash))
			continue
		}
		out = append(out, holdings.AggregateByTaxonomy(held, t.ID, t.Name, color, t.Categories, assignmentsByAsset, totalAssetsOnly, true))
	}
	return out, nil
}

// GetValuations returns accountID's valuation history in [start, end].
func (s *Service) GetValuations(ctx context.Context, accountID string, start, end *time.Time) ([]valuationRow, error) {
	rows, err := s.valuations.Between(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]valuationRow, len(rows))
	for i, r := range rows {
		out[i] = valuationRow{
			AccountID:           r.AccountID,
			Date:                r.Date.Format("2006-01-02"),
			BaseCurrency:        r.BaseCurrency,
			MarketValueLocal:    r.MarketValueLocal.String(),
			TotalValue:          r.TotalValue.String(),
			CostBasis:           r.CostBasis.String(),
			UnrealizedPnLBase:   r.UnrealizedPnLBase.String(),
			FxRateAccountToBase: r.FxRateAccountToBase.String(),
		}
	}
	return out, nil
}

// valuationRow is the decimal-safe JSON shape for one valuation day, string
// encoding every decimal field the same way the snapshot repository's DTO
// does, rather than risking float64 JSON round-tripping.
type valuationRow struct {
	AccountID           string `json:"account_id"`
	Date                string `json:"date"`
	BaseCurrency        string `json:"base_currency"`
	MarketValueLocal    string `json:"market_value_local"`
	TotalValue          string `json:"total_value"`
	CostBasis           string `json:"cost_basis"`
	UnrealizedPnLBase   string `json:"unrealized_pnl_base"`
	FxRateAccountToBase string `json:"fx_rate_account_to_base"`
}

// ListQuoteSyncStates returns every tracked symbol's sync-state bookkeeping.
func (s *Service) ListQuoteSyncStates(ctx context.Context) ([]*quotes.SyncState, error) {
	return s.quoteSyncRepo.ListAll(ctx)
}
