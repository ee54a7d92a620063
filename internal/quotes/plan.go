package quotes

import (
	"sort"
	"time"
)

// SymbolSyncPlan is the resolved fetch window for one symbol's next sync.
type SymbolSyncPlan struct {
	Symbol      string
	Category    SyncCategory
	StartDate   time.Time
	EndDate     time.Time
	Priority    int
	DataSource  string
	QuoteSymbol string // provider-native symbol, if it differs from Symbol
	Currency    string
}

// BuildPlan resolves the fetch window for a symbol given its current sync
// state. Closed symbols beyond the grace period return ok=false: nothing
// to sync.
func BuildPlan(s *SyncState, now time.Time, gracePeriodDays int, quoteSymbol, currency string) (SymbolSyncPlan, bool) {
	category := s.DetermineCategory(now, gracePeriodDays)
	today := truncateDay(now)

	plan := SymbolSyncPlan{
		Symbol:      s.Symbol,
		Category:    category,
		Priority:    category.DefaultPriority(),
		DataSource:  s.DataSource,
		QuoteSymbol: quoteSymbol,
		Currency:    currency,
		EndDate:     today,
	}

	switch category {
	case CategoryActive, CategoryRecentlyClosed:
		if s.LastQuoteDate != nil {
			plan.StartDate = truncateDay(*s.LastQuoteDate)
		} else if s.FirstActivityDate != nil {
			plan.StartDate = truncateDay(*s.FirstActivityDate).AddDate(0, 0, -quoteHistoryBufferDays)
		} else {
			plan.StartDate = today
		}
	case CategoryNew:
		if s.FirstActivityDate != nil {
			plan.StartDate = truncateDay(*s.FirstActivityDate).AddDate(0, 0, -quoteHistoryBufferDays)
		} else {
			plan.StartDate = today
		}
	case CategoryNeedsBackfill:
		plan.StartDate = truncateDay(*s.FirstActivityDate).AddDate(0, 0, -quoteHistoryBufferDays)
		if s.EarliestQuoteDate != nil {
			plan.EndDate = truncateDay(*s.EarliestQuoteDate).AddDate(0, 0, -1)
		}
	case CategoryClosed:
		return SymbolSyncPlan{}, false
	}

	return plan, true
}

// BuildPlans resolves plans for a batch of sync states, dropping closed
// symbols and ordering by descending priority (ties broken by symbol for
// deterministic output).
func BuildPlans(states []*SyncState, now time.Time, gracePeriodDays int, quoteSymbolFor func(symbol string) (quoteSymbol, currency string)) []SymbolSyncPlan {
	plans := make([]SymbolSyncPlan, 0, len(states))
	for _, s := range states {
		qs, currency := quoteSymbolFor(s.Symbol)
		plan, ok := BuildPlan(s, now, gracePeriodDays, qs, currency)
		if !ok {
			continue
		}
		plans = append(plans, plan)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Priority != plans[j].Priority {
			return plans[i].Priority > plans[j].Priority
		}
		return plans[i].Symbol < plans[j].Symbol
	})
	return plans
}
