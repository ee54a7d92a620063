package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afadil/wealthfolio-sub004/internal/fx"
	"github.com/afadil/wealthfolio-sub004/internal/holdings"
	"github.com/afadil/wealthfolio-sub004/internal/portfolio"
	"github.com/afadil/wealthfolio-sub004/internal/quotes"
	"github.com/afadil/wealthfolio-sub004/internal/snapshot"
)

// fakeAccounts is the minimal portfolio.AccountRepository double these
// tests need.
type fakeAccounts struct {
	byID        map[string]portfolio.Account
	nonArchived []portfolio.Account
}

func (f *fakeAccounts) Get(ctx context.Context, id string) (*portfolio.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
func (f *fakeAccounts) List(ctx context.Context, activeOnly bool) ([]portfolio.Account, error) {
	return f.nonArchived, nil
}
func (f *fakeAccounts) ListNonArchived(ctx context.Context) ([]portfolio.Account, error) {
	return f.nonArchived, nil
}
func (f *fakeAccounts) Upsert(ctx context.Context, a portfolio.Account) error { return nil }
func (f *fakeAccounts) Delete(ctx context.Context, id string) error          { return nil }

type fakeSnapshotStore struct {
	latest map[string]*snapshot.AccountStateSnapshot
}

func (f *fakeSnapshotStore) LatestFor(accountID string) (*snapshot.AccountStateSnapshot, error) {
	return f.latest[accountID], nil
}
func (f *fakeSnapshotStore) Between(accountID string, start, end *time.Time) ([]snapshot.AccountStateSnapshot, error) {
	return nil, nil
}
func (f *fakeSnapshotStore) Keyframes(accountID string, start, end *time.Time) ([]snapshot.AccountStateSnapshot, error) {
	return nil, nil
}
func (f *fakeSnapshotStore) Upsert(s snapshot.AccountStateSnapshot) error { return nil }
func (f *fakeSnapshotStore) DeleteDates(accountID string, dates []time.Time) error {
	return nil
}
func (f *fakeSnapshotStore) DeleteCalculatedSince(accountID string, from time.Time) error {
	return nil
}

type fakeQuoteStore struct {
	pairs map[string]quotes.ClosePair
}

func (f *fakeQuoteStore) GetInRange(ctx context.Context, assetIDs []string, start, end time.Time) ([]quotes.StoredQuote, error) {
	return nil, nil
}
func (f *fakeQuoteStore) LatestPair(ctx context.Context, assetIDs []string) (map[string]quotes.ClosePair, error) {
	return f.pairs, nil
}
func (f *fakeQuoteStore) UpsertMany(ctx context.Context, rows []quotes.StoredQuote) error { return nil }

type fakeTaxonomies struct {
	taxonomies  []holdings.Taxonomy
	assignments map[string][]holdings.Assignment
}

func (f *fakeTaxonomies) TaxonomiesWithCategories(ctx context.Context) ([]holdings.Taxonomy, error) {
	return f.taxonomies, nil
}
func (f *fakeTaxonomies) AssignmentsForAsset(ctx context.Context, assetID string) ([]holdings.Assignment, error) {
	return f.assignments[assetID], nil
}
func (f *fakeTaxonomies) UpsertAssignment(ctx context.Context, a holdings.Assignment) error {
	return nil
}

// fakeFxRepo backs a real fx.Service with an empty rate table: same-
// currency lookups resolve to 1 without ever touching the table, which is
// all these tests need.
type fakeFxRepo struct{}

func (fakeFxRepo) HistoricalAll(ctx context.Context) ([]fx.Rate, error)    { return nil, nil }
func (fakeFxRepo) Latest(ctx context.Context) ([]fx.Rate, error)           { return nil, nil }
func (fakeFxRepo) LatestBySymbol(ctx context.Context, symbol string) (*fx.Rate, error) {
	return nil, nil
}
func (fakeFxRepo) HistoricalForPair(ctx context.Context, symbol string, start, end time.Time) ([]fx.Rate, error) {
	return nil, nil
}
func (fakeFxRepo) UpsertRate(ctx context.Context, rate fx.Rate) error { return nil }
func (fakeFxRepo) EnsureFxAsset(ctx context.Context, from, to, source string) error {
	return nil
}

func newTestFxService(t *testing.T) *fx.Service {
	t.Helper()
	svc := fx.NewService(fakeFxRepo{}, zerolog.Nop())
	require.NoError(t, svc.Initialize(context.Background()))
	return svc
}

func TestResolveAccountIDs_ReturnsGivenIDsWhenNonEmpty(t *testing.T) {
	s := &Service{
		log:      zerolog.Nop(),
		accounts: &fakeAccounts{nonArchived: []portfolio.Account{{ID: "should-not-be-used"}}},
	}
	ids, err := s.resolveAccountIDs(context.Background(), []string{"acc1", "acc2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acc1", "acc2"}, ids)
}

func TestResolveAccountIDs_FallsBackToNonArchivedWhenEmpty(t *testing.T) {
	s := &Service{
		log: zerolog.Nop(),
		accounts: &fakeAccounts{nonArchived: []portfolio.Account{
			{ID: "acc1"}, {ID: "acc2"},
		}},
	}
	ids, err := s.resolveAccountIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc1", "acc2"}, ids)
}

func TestBaseCurrency_SetAndGetAreGuarded(t *testing.T) {
	s := &Service{baseCurrency: "USD"}
	assert.Equal(t, "USD", s.BaseCurrency())
	s.SetBaseCurrency("EUR")
	assert.Equal(t, "EUR", s.BaseCurrency())
}

// TestGetAllocations_RoutesAssetClassTaxonomyToSyntheticCashRollup checks
// the case-insensitive "Asset Class" name match that decides between
// holdings.AssetClassAllocation (adds a synthetic Cash category) and the
// plain top-level-ancestor rollup every other taxonomy gets.
func TestGetAllocations_RoutesAssetClassTaxonomyToSyntheticCashRollup(t *testing.T) {
	s := &Service{
		log:          zerolog.Nop(),
		baseCurrency: "USD",
		accounts:     &fakeAccounts{byID: map[string]portfolio.Account{}},
		snapshotStore: &fakeSnapshotStore{latest: map[string]*snapshot.AccountStateSnapshot{
			"TOTAL": {
				AccountID: "TOTAL",
				Date:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				Positions: map[string]snapshot.PositionFinancials{},
				CashBalances: map[string]decimal.Decimal{
					"USD": decimal.NewFromInt(1000),
				},
			},
		}},
		quoteStore: &fakeQuoteStore{pairs: map[string]quotes.ClosePair{}},
		taxonomies: &fakeTaxonomies{taxonomies: []holdings.Taxonomy{
			{ID: "tax-asset-class", Name: "asset class"},
			{ID: "tax-sector", Name: "Sector"},
		}},
		fxSvc: newTestFxService(t),
	}

	allocations, err := s.GetAllocations(context.Background(), "TOTAL")
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	byID := make(map[string]holdings.TaxonomyAllocation)
	for _, a := range allocations {
		byID[a.TaxonomyID] = a
	}

	assetClass := byID["tax-asset-class"]
	require.Len(t, assetClass.Categories, 1, "asset-class allocation should fold in exactly the synthetic Cash category")
	assert.Equal(t, "Cash", assetClass.Categories[0].CategoryName)

	sector := byID["tax-sector"]
	assert.Empty(t, sector.Categories, "a cash-only portfolio has no sector-assigned holdings to roll up")
}
