package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

func TestParsePrices(t *testing.T) {
	p, err := ledger.ParsePrices(map[string]string{"morning": "25.50", "EVENING": "40"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.5").Equal(p.Of(ledger.MealMorning)))
	assert.True(t, decimal.NewFromInt(40).Equal(p.Of(ledger.MealEvening)))

	_, err = ledger.ParsePrices(map[string]string{"lunch": "10"})
	assert.True(t, ledger.IsInvalidInput(err))

	_, err = ledger.ParsePrices(map[string]string{"morning": "ten"})
	assert.Error(t, err)

	_, err = ledger.ParsePrices(map[string]string{"morning": "-1"})
	assert.True(t, ledger.IsInvalidInput(err))
}

func TestPrices_MissingWindowIsZero(t *testing.T) {
	var p ledger.Prices
	assert.True(t, p.Of(ledger.MealEvening).IsZero())
}

func TestSummarize(t *testing.T) {
	// GIVEN: Four meals across three counters
	prices := ledger.Prices{
		ledger.MealMorning: decimal.RequireFromString("20.25"),
		ledger.MealEvening: decimal.RequireFromString("35"),
	}
	recs := []ledger.IssuanceRecord{
		{ID: "a", EmployeeID: "E1", MealWindow: ledger.MealMorning, CounterID: 2},
		{ID: "b", EmployeeID: "E2", MealWindow: ledger.MealMorning, CounterID: 1},
		{ID: "c", EmployeeID: "E3", MealWindow: ledger.MealEvening, CounterID: 3},
		{ID: "d", EmployeeID: "E4", MealWindow: ledger.MealMorning, CounterID: 2},
	}

	// WHEN: Summarizing
	s := ledger.Summarize("2025-03-10", recs, prices)

	// THEN: Totals, per-window, per-counter and value add up
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.ByWindow[ledger.MealMorning])
	assert.Equal(t, 1, s.ByWindow[ledger.MealEvening])
	assert.Equal(t, []ledger.CounterCount{{CounterID: 1, Count: 1}, {CounterID: 2, Count: 2}, {CounterID: 3, Count: 1}}, s.ByCounter)
	assert.Equal(t, "95.75", s.Value.StringFixed(2))
}

func TestSummarize_Empty(t *testing.T) {
	s := ledger.Summarize("2025-03-10", nil, nil)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.ByWindow[ledger.MealMorning])
	assert.Equal(t, 0, s.ByWindow[ledger.MealEvening])
	assert.NotNil(t, s.ByCounter)
	assert.True(t, s.Value.IsZero())
}

func TestLedger_RosterSummary(t *testing.T) {
	l, _ := newTestLedger(t, ledger.WithPrices(ledger.Prices{ledger.MealMorning: decimal.NewFromInt(30)}))
	ctx := context.Background()

	_, err := l.IssueMeal(ctx, "EMP001", ledger.MealMorning, 1, dayD)
	require.NoError(t, err)
	_, err = l.IssueMeal(ctx, "EMP002", ledger.MealMorning, 1, dayD.Add(time.Minute))
	require.NoError(t, err)
	_, err = l.IssueMeal(ctx, "EMP001", ledger.MealEvening, 2, dayD.Add(time.Hour))
	require.NoError(t, err)

	s, err := l.RosterSummary(ctx, dayD)
	require.NoError(t, err)
	assert.Equal(t, ledger.ServiceDay("2025-03-10"), s.ServiceDay)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, "60", s.Value.String())
}
