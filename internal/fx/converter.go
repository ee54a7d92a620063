// Package fx implements the historical exchange-rate graph: transitive
// closure over same-day rates and nearest-date lookup across days.
package fx

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// ErrRateNotFound indicates no rate exists for a currency pair on any date.
type ErrRateNotFound struct {
	From, To string
}

func (e *ErrRateNotFound) Error() string {
	return fmt.Sprintf("no fx rate found for %s->%s on any date", e.From, e.To)
}

// ErrInvalidCurrencyCode indicates a non-3-letter code after normalization.
type ErrInvalidCurrencyCode struct {
	Code string
}

func (e *ErrInvalidCurrencyCode) Error() string {
	return fmt.Sprintf("invalid currency code: %q", e.Code)
}

// Rate is one stored exchange rate observation.
type Rate struct {
	From, To string
	Date     time.Time // day-resolved (time component ignored)
	Value    decimal.Decimal
	Source   string
}

type pairKey struct {
	from, to string
}

// dayGraph holds the fully-closed rate table for one calendar day.
type dayGraph map[pairKey]decimal.Decimal

// Converter answers rate/convert queries over a set of loaded rates. It is
// not safe for concurrent mutation; callers needing a read/refresh split
// should use Service, which wraps a Converter behind a RWMutex.
type Converter struct {
	byDay       map[int64]dayGraph // day (unix truncated) -> closure
	sortedDays  []int64
}

// NewConverter builds a Converter from a flat list of rates, normalizing
// currency codes and computing the per-day transitive closure. Rates with
// minor-unit currency codes are normalized to their major form before the
// graph is built; Rate rescales minor-unit codes by their subunit factor, so
// callers pass minor-unit codes as they are.
func NewConverter(rates []Rate) (*Converter, error) {
	byDayRaw := make(map[int64][]Rate)
	for _, r := range rates {
		day := truncateDay(r.Date)
		byDayRaw[day] = append(byDayRaw[day], r)
	}

	c := &Converter{byDay: make(map[int64]dayGraph)}
	for day, dayRates := range byDayRaw {
		graph, err := buildDayClosure(dayRates)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", day, err)
		}
		c.byDay[day] = graph
		c.sortedDays = append(c.sortedDays, day)
	}
	sort.Slice(c.sortedDays, func(i, j int) bool { return c.sortedDays[i] < c.sortedDays[j] })
	return c, nil
}

func truncateDay(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// buildDayClosure materializes inverse rates and a full transitive closure
// for one day's worth of observations. Duplicate (from,to) pairs with
// differing values reject the whole day.
func buildDayClosure(rates []Rate) (dayGraph, error) {
	graph := make(dayGraph)
	currencies := make(map[string]struct{})

	set := func(from, to string, value decimal.Decimal) error {
		k := pairKey{from, to}
		if existing, ok := graph[k]; ok {
			if !existing.Equal(value) {
				return fmt.Errorf("conflicting rate for %s->%s: %s vs %s", from, to, existing, value)
			}
			return nil
		}
		graph[k] = value
		return nil
	}

	for _, r := range rates {
		from := money.NormalizeCurrencyCode(r.From)
		to := money.NormalizeCurrencyCode(r.To)
		currencies[from] = struct{}{}
		currencies[to] = struct{}{}
		if err := set(from, to, r.Value); err != nil {
			return nil, err
		}
		if !r.Value.IsZero() {
			if err := set(to, from, money.One.Div(r.Value)); err != nil {
				return nil, err
			}
		}
	}

	// Transitive closure: repeat until a full pass adds nothing new.
	for {
		added := false
		for from := range currencies {
			for via := range currencies {
				if from == via {
					continue
				}
				rFromVia, ok := graph[pairKey{from, via}]
				if !ok {
					continue
				}
				for to := range currencies {
					if to == from || to == via {
						continue
					}
					if _, ok := graph[pairKey{from, to}]; ok {
						continue
					}
					rViaTo, ok := graph[pairKey{via, to}]
					if !ok {
						continue
					}
					graph[pairKey{from, to}] = rFromVia.Mul(rViaTo)
					added = true
				}
			}
		}
		if !added {
			break
		}
	}

	return graph, nil
}

// subunitsPerMajor returns how many units of code make up one major unit
// (100 for minor-unit codes like GBp, 1 otherwise).
func subunitsPerMajor(code string) decimal.Decimal {
	if money.IsMinorUnit(code) {
		return decimal.New(100, 0)
	}
	return money.One
}

// Rate returns the rate from one currency to another on the given date,
// falling back to the nearest date with data when no exact match exists.
// Minor-unit codes (GBp, ZAc, ...) are normalized to their major currency
// for the graph lookup and rescaled by their subunit factor afterward, so
// that e.g. Convert(100, GBp, USD, d) == Convert(1, GBP, USD, d).
func (c *Converter) Rate(from, to string, date time.Time) (decimal.Decimal, error) {
	normFrom := money.NormalizeCurrencyCode(from)
	normTo := money.NormalizeCurrencyCode(to)
	fromSub := subunitsPerMajor(from)
	toSub := subunitsPerMajor(to)

	var graphRate decimal.Decimal
	if normFrom == normTo {
		graphRate = money.One
	} else {
		day := truncateDay(date)
		graph, ok := c.byDay[day]
		if !ok {
			nearestDay, found := c.nearestDay(day)
			if !found {
				return decimal.Zero, &ErrRateNotFound{From: from, To: to}
			}
			graph = c.byDay[nearestDay]
		}
		var ok2 bool
		graphRate, ok2 = graph[pairKey{normFrom, normTo}]
		if !ok2 {
			return decimal.Zero, &ErrRateNotFound{From: from, To: to}
		}
	}

	return graphRate.Mul(toSub).Div(fromSub), nil
}

// nearestDay finds the stored day closest to target, preferring the earlier
// day on an exact tie in absolute distance.
func (c *Converter) nearestDay(target int64) (int64, bool) {
	if len(c.sortedDays) == 0 {
		return 0, false
	}
	idx := sort.Search(len(c.sortedDays), func(i int) bool { return c.sortedDays[i] >= target })

	switch {
	case idx == 0:
		return c.sortedDays[0], true
	case idx == len(c.sortedDays):
		return c.sortedDays[len(c.sortedDays)-1], true
	default:
		prev := c.sortedDays[idx-1]
		next := c.sortedDays[idx]
		distPrev := target - prev
		distNext := next - target
		if distPrev <= distNext {
			return prev, true
		}
		return next, true
	}
}

// Convert converts amount from one currency to another on the given date.
func (c *Converter) Convert(amount decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, error) {
	rate, err := c.Rate(from, to, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
