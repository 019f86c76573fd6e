/*
Package storetest is a conformance suite every ledger.Store must pass.

USAGE:

	func TestStore(t *testing.T) {
	    storetest.Run(t, func(t *testing.T) ledger.Store {
	        s, err := sqlite.New(":memory:")
	        require.NoError(t, err)
	        t.Cleanup(func() { s.Close() })
	        return s
	    })
	}

newStore is called once per subtest and must return an empty store.
*/
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) ledger.Store

// Run executes every conformance test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("FindAbsent", func(t *testing.T) { testFindAbsent(t, newStore(t)) })
	t.Run("InsertThenFind", func(t *testing.T) { testInsertThenFind(t, newStore(t)) })
	t.Run("DuplicateKeyReturnsExisting", func(t *testing.T) { testDuplicateKey(t, newStore(t)) })
	t.Run("DayIsolation", func(t *testing.T) { testDayIsolation(t, newStore(t)) })
	t.Run("ListByDay", func(t *testing.T) { testListByDay(t, newStore(t)) })
	t.Run("ListByEmployee", func(t *testing.T) { testListByEmployee(t, newStore(t)) })
	t.Run("EmptyLists", func(t *testing.T) { testEmptyLists(t, newStore(t)) })
	t.Run("ConcurrentInsertSameKey", func(t *testing.T) { testConcurrentInsert(t, newStore(t)) })
	t.Run("ConcurrentInsertDistinctKeys", func(t *testing.T) { testConcurrentDistinct(t, newStore(t)) })
}

// =============================================================================
// FIXTURES
// =============================================================================

var base = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

// Record builds a record served at base+offset, with the UTC service day.
func Record(id string, emp ledger.EmployeeID, w ledger.MealWindow, counter ledger.CounterID, offset time.Duration) ledger.IssuanceRecord {
	at := base.Add(offset)
	return ledger.IssuanceRecord{
		ID:             id,
		EmployeeID:     emp,
		MealWindow:     w,
		CounterID:      counter,
		ServedAtMillis: at.UnixMilli(),
		ServiceDay:     ledger.UTCCalendar().Day(at),
	}
}

func mustInsert(t *testing.T, s ledger.Store, rec ledger.IssuanceRecord) {
	t.Helper()
	res, err := s.InsertIfAbsent(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, res.Inserted, "expected %s to be inserted", rec.ID)
}

// =============================================================================
// CONFORMANCE TESTS
// =============================================================================

func testFindAbsent(t *testing.T, s ledger.Store) {
	got, err := s.FindByEmployeeAndDay(context.Background(), "EMP404", "2025-03-10")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testInsertThenFind(t *testing.T, s ledger.Store) {
	// GIVEN: One record for EMP001
	rec := Record("r-1", "EMP001", ledger.MealMorning, 1, 0)
	mustInsert(t, s, rec)

	// WHEN: Looking it up by key
	got, err := s.FindByEmployeeAndDay(context.Background(), "EMP001", rec.ServiceDay)

	// THEN: Every field survives storage
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func testDuplicateKey(t *testing.T, s ledger.Store) {
	// GIVEN: EMP001 has a morning meal from counter 1
	first := Record("r-1", "EMP001", ledger.MealMorning, 1, 0)
	mustInsert(t, s, first)

	// WHEN: An evening meal from counter 2 is inserted later the same day
	second := Record("r-2", "EMP001", ledger.MealEvening, 2, 9*time.Hour)
	res, err := s.InsertIfAbsent(context.Background(), second)

	// THEN: The first record wins and nothing new is stored
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, first, res.Existing)

	recs, err := s.ListByEmployee(context.Background(), "EMP001")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func testDayIsolation(t *testing.T, s ledger.Store) {
	// GIVEN: EMP001 was served on day D
	mustInsert(t, s, Record("r-1", "EMP001", ledger.MealMorning, 1, 0))

	// WHEN: EMP001 comes back on D+1
	next := Record("r-2", "EMP001", ledger.MealEvening, 2, 24*time.Hour)
	res, err := s.InsertIfAbsent(context.Background(), next)

	// THEN: The new day is independent
	require.NoError(t, err)
	assert.True(t, res.Inserted)

	got, err := s.FindByEmployeeAndDay(context.Background(), "EMP001", next.ServiceDay)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r-2", got.ID)
}

func testListByDay(t *testing.T, s ledger.Store) {
	// GIVEN: Three employees today, one yesterday
	mustInsert(t, s, Record("a", "EMP001", ledger.MealMorning, 1, 0))
	mustInsert(t, s, Record("b", "EMP002", ledger.MealMorning, 2, 30*time.Minute))
	mustInsert(t, s, Record("c", "EMP003", ledger.MealEvening, 3, 10*time.Hour))
	mustInsert(t, s, Record("y", "EMP001", ledger.MealEvening, 1, -12*time.Hour))

	// WHEN: Listing today
	recs, err := s.ListByDay(context.Background(), "2025-03-10")

	// THEN: Only today's records, most recent first
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, "a", recs[2].ID)
}

func testListByEmployee(t *testing.T, s ledger.Store) {
	// GIVEN: EMP001 served on three days, EMP002 on one
	mustInsert(t, s, Record("d1", "EMP001", ledger.MealMorning, 1, 0))
	mustInsert(t, s, Record("d3", "EMP001", ledger.MealEvening, 2, 48*time.Hour))
	mustInsert(t, s, Record("d2", "EMP001", ledger.MealMorning, 3, 24*time.Hour))
	mustInsert(t, s, Record("other", "EMP002", ledger.MealMorning, 1, 0))

	// WHEN: Listing EMP001's history
	recs, err := s.ListByEmployee(context.Background(), "EMP001")

	// THEN: All of EMP001's records, newest day first
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, ledger.ServiceDay("2025-03-12"), recs[0].ServiceDay)
	assert.Equal(t, ledger.ServiceDay("2025-03-11"), recs[1].ServiceDay)
	assert.Equal(t, ledger.ServiceDay("2025-03-10"), recs[2].ServiceDay)
	for _, r := range recs {
		assert.Equal(t, ledger.EmployeeID("EMP001"), r.EmployeeID)
	}
}

func testEmptyLists(t *testing.T, s ledger.Store) {
	byDay, err := s.ListByDay(context.Background(), "2025-03-10")
	require.NoError(t, err)
	assert.Empty(t, byDay)

	byEmp, err := s.ListByEmployee(context.Background(), "EMP001")
	require.NoError(t, err)
	assert.Empty(t, byEmp)
}

func testConcurrentInsert(t *testing.T, s ledger.Store) {
	// GIVEN: 20 counters scan EMP002 at the same moment
	const writers = 20
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]ledger.InsertResult, writers)
		errs    = make([]error, writers)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := Record(fmt.Sprintf("w-%02d", i), "EMP002", ledger.MealMorning, ledger.CounterID(i%3+1), time.Duration(i)*time.Millisecond)
			<-start
			results[i], errs[i] = s.InsertIfAbsent(context.Background(), rec)
		}(i)
	}

	// WHEN: They all insert
	close(start)
	wg.Wait()

	// THEN: Exactly one wins and every loser sees the winner
	var winner string
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		if results[i].Inserted {
			require.Empty(t, winner, "more than one insert succeeded")
			winner = fmt.Sprintf("w-%02d", i)
		}
	}
	require.NotEmpty(t, winner, "no insert succeeded")
	for i := 0; i < writers; i++ {
		if !results[i].Inserted {
			assert.Equal(t, winner, results[i].Existing.ID)
		}
	}

	recs, err := s.ListByDay(context.Background(), "2025-03-10")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, winner, recs[0].ID)
}

func testConcurrentDistinct(t *testing.T, s ledger.Store) {
	const employees = 10
	var wg sync.WaitGroup
	errs := make([]error, employees)
	inserted := make([]bool, employees)
	for i := 0; i < employees; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			emp := ledger.EmployeeID(fmt.Sprintf("EMP%03d", i))
			res, err := s.InsertIfAbsent(context.Background(), Record(fmt.Sprintf("r-%d", i), emp, ledger.MealMorning, 1, time.Duration(i)*time.Second))
			errs[i], inserted[i] = err, res.Inserted
		}(i)
	}
	wg.Wait()

	for i := 0; i < employees; i++ {
		require.NoError(t, errs[i])
		assert.True(t, inserted[i])
	}
	recs, err := s.ListByDay(context.Background(), "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, recs, employees)
}
