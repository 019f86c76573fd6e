package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRICES - Value of one meal per window
// =============================================================================

// Prices maps a meal window to the value of one meal. Missing windows count as zero.
type Prices map[MealWindow]decimal.Decimal

// ParsePrices reads decimal strings keyed by window name.
func ParsePrices(raw map[string]string) (Prices, error) {
	p := make(Prices, len(raw))
	for k, v := range raw {
		w, err := ParseMealWindow(k)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", w, err)
		}
		if d.IsNegative() {
			return nil, &ValidationError{Field: "price", Value: v, Reason: "must not be negative"}
		}
		p[w] = d
	}
	return p, nil
}

func (p Prices) Of(w MealWindow) decimal.Decimal {
	if d, ok := p[w]; ok {
		return d
	}
	return decimal.Zero
}

// =============================================================================
// ROSTER SUMMARY
// =============================================================================

// CounterCount is the number of meals handed out at one counter.
type CounterCount struct {
	CounterID CounterID
	Count     int
}

type RosterSummary struct {
	ServiceDay ServiceDay
	Total      int
	ByWindow   map[MealWindow]int
	ByCounter  []CounterCount // ascending CounterID
	Value      decimal.Decimal
}

// Summarize aggregates the records of a single service day.
func Summarize(day ServiceDay, recs []IssuanceRecord, prices Prices) RosterSummary {
	s := RosterSummary{
		ServiceDay: day,
		ByWindow:   make(map[MealWindow]int, 2),
		ByCounter:  []CounterCount{},
		Value:      decimal.Zero,
	}
	for _, w := range MealWindows() {
		s.ByWindow[w] = 0
	}

	counters := make(map[CounterID]int)
	for _, r := range recs {
		s.Total++
		s.ByWindow[r.MealWindow]++
		counters[r.CounterID]++
		s.Value = s.Value.Add(prices.Of(r.MealWindow))
	}
	for c, n := range counters {
		s.ByCounter = append(s.ByCounter, CounterCount{CounterID: c, Count: n})
	}
	sort.Slice(s.ByCounter, func(i, j int) bool {
		return s.ByCounter[i].CounterID < s.ByCounter[j].CounterID
	})
	return s
}

// RosterSummary totals now's service day.
func (l *Ledger) RosterSummary(ctx context.Context, now time.Time) (RosterSummary, error) {
	if err := validateNow(now); err != nil {
		return RosterSummary{}, err
	}
	day := l.calendar.DayOfMillis(now.UnixMilli())
	recs, err := l.ListDay(ctx, day)
	if err != nil {
		return RosterSummary{}, err
	}
	return Summarize(day, recs, l.prices), nil
}
