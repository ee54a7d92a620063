// Package quotes tracks, per symbol, how far quote history has been
// synced and what still needs fetching.
package quotes

import "time"

// SyncCategory determines how a symbol should be synced.
type SyncCategory string

const (
	// CategoryActive is an open position: sync from last_quote_date to today.
	CategoryActive SyncCategory = "active"
	// CategoryNew has activity but no quotes yet: needs full history from
	// first_activity_date minus a buffer.
	CategoryNew SyncCategory = "new"
	// CategoryNeedsBackfill has activity dated earlier than the earliest
	// stored quote: needs quotes before earliest_quote_date.
	CategoryNeedsBackfill SyncCategory = "needs_backfill"
	// CategoryRecentlyClosed closed within the grace period: keep syncing.
	CategoryRecentlyClosed SyncCategory = "recently_closed"
	// CategoryClosed closed beyond the grace period: skip syncing.
	CategoryClosed SyncCategory = "closed"
)

// DefaultPriority returns the default sync priority for a category; higher
// runs first.
func (c SyncCategory) DefaultPriority() int {
	switch c {
	case CategoryActive:
		return 100
	case CategoryNeedsBackfill:
		return 90
	case CategoryNew:
		return 80
	case CategoryRecentlyClosed:
		return 50
	case CategoryClosed:
		return 0
	default:
		return 0
	}
}

// quoteHistoryBufferDays is subtracted from first_activity_date when
// checking whether a symbol needs backfilled history.
const quoteHistoryBufferDays = 30

// SyncState is the persisted sync bookkeeping for one symbol.
type SyncState struct {
	Symbol            string
	IsActive          bool
	FirstActivityDate *time.Time
	LastActivityDate  *time.Time
	PositionClosedAt  *time.Time
	LastSyncedAt      *time.Time
	LastQuoteDate     *time.Time
	EarliestQuoteDate *time.Time
	DataSource        string
	SyncPriority      int
	ErrorCount        int
	LastError         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSyncState creates a fresh New-category sync state for a symbol.
func NewSyncState(symbol, dataSource string, now time.Time) *SyncState {
	return &SyncState{
		Symbol:       symbol,
		IsActive:     true,
		DataSource:   dataSource,
		SyncPriority: CategoryNew.DefaultPriority(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DetermineCategory classifies the symbol's sync need. New and
// needs-backfill checks run first and apply regardless of is_active,
// since a symbol can have activity but no snapshot yet (is_active may be
// false purely because nothing has projected a position for it).
func (s *SyncState) DetermineCategory(now time.Time, gracePeriodDays int) SyncCategory {
	today := truncateDay(now)

	if s.FirstActivityDate != nil && s.EarliestQuoteDate == nil {
		return CategoryNew
	}

	if s.FirstActivityDate != nil && s.EarliestQuoteDate != nil {
		requiredStart := truncateDay(*s.FirstActivityDate).AddDate(0, 0, -quoteHistoryBufferDays)
		if requiredStart.Before(truncateDay(*s.EarliestQuoteDate)) {
			return CategoryNeedsBackfill
		}
	}

	if s.IsActive {
		return CategoryActive
	}

	if s.PositionClosedAt != nil {
		daysSinceClose := int(today.Sub(truncateDay(*s.PositionClosedAt)).Hours() / 24)
		if daysSinceClose <= gracePeriodDays {
			return CategoryRecentlyClosed
		}
	}

	if s.LastActivityDate != nil {
		daysSinceActivity := int(today.Sub(truncateDay(*s.LastActivityDate)).Hours() / 24)
		if daysSinceActivity <= gracePeriodDays {
			return CategoryRecentlyClosed
		}
	}

	return CategoryClosed
}

// MarkSynced records a successful sync and clears the error streak.
func (s *SyncState) MarkSynced(lastQuoteDate time.Time, now time.Time) {
	d := truncateDay(lastQuoteDate)
	s.LastSyncedAt = &now
	s.LastQuoteDate = &d
	s.ErrorCount = 0
	s.LastError = ""
	s.UpdatedAt = now
}

// MarkSyncFailed increments the error streak.
func (s *SyncState) MarkSyncFailed(errMsg string, now time.Time) {
	s.ErrorCount++
	s.LastError = errMsg
	s.UpdatedAt = now
}

// UpdateActivityDates widens the first/last activity window; it never
// narrows it.
func (s *SyncState) UpdateActivityDates(first, last *time.Time, now time.Time) {
	if first != nil {
		d := truncateDay(*first)
		if s.FirstActivityDate == nil || d.Before(truncateDay(*s.FirstActivityDate)) {
			s.FirstActivityDate = &d
		}
	}
	if last != nil {
		d := truncateDay(*last)
		if s.LastActivityDate == nil || d.After(truncateDay(*s.LastActivityDate)) {
			s.LastActivityDate = &d
		}
	}
	s.UpdatedAt = now
}

// MarkClosed flips the symbol to closed as of closedDate.
func (s *SyncState) MarkClosed(closedDate time.Time, now time.Time) {
	d := truncateDay(closedDate)
	s.IsActive = false
	s.PositionClosedAt = &d
	s.SyncPriority = CategoryRecentlyClosed.DefaultPriority()
	s.UpdatedAt = now
}

// MarkActive flips the symbol back to an open position.
func (s *SyncState) MarkActive(now time.Time) {
	s.IsActive = true
	s.PositionClosedAt = nil
	s.SyncPriority = CategoryActive.DefaultPriority()
	s.UpdatedAt = now
}

// UpdateEarliestQuoteDate widens the earliest-known-quote watermark
// backward only.
func (s *SyncState) UpdateEarliestQuoteDate(date time.Time, now time.Time) {
	d := truncateDay(date)
	if s.EarliestQuoteDate == nil || d.Before(truncateDay(*s.EarliestQuoteDate)) {
		s.EarliestQuoteDate = &d
	}
	s.UpdatedAt = now
}
