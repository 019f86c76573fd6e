package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
	"github.com/Krishna78600/Samosa-Man-App/ledger/storetest"
	"github.com/Krishna78600/Samosa-Man-App/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store {
		return newTestStore(t)
	})
}

// =============================================================================
// SHARED FILE TESTS
// =============================================================================

func TestStore_TwoHandlesOneFile(t *testing.T) {
	// GIVEN: Two counters open the same database file independently
	path := filepath.Join(t.TempDir(), "meals.db")
	a, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	b, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	// WHEN: Both try to serve EMP002 at the same moment
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results [2]ledger.InsertResult
		errs    [2]error
	)
	for i, s := range []*sqlite.Store{a, b} {
		wg.Add(1)
		go func(i int, s *sqlite.Store) {
			defer wg.Done()
			rec := storetest.Record(fmt.Sprintf("h-%d", i), "EMP002", ledger.MealMorning, ledger.CounterID(i+1), 0)
			<-start
			results[i], errs[i] = s.InsertIfAbsent(context.Background(), rec)
		}(i, s)
	}
	close(start)
	wg.Wait()

	// THEN: The unique index lets exactly one through
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotEqual(t, results[0].Inserted, results[1].Inserted)

	winner, loser := results[0], results[1]
	winnerID := "h-0"
	if results[1].Inserted {
		winner, loser = results[1], results[0]
		winnerID = "h-1"
	}
	assert.True(t, winner.Inserted)

	// AND: The loser is told about the record that actually persisted
	recs, err := a.ListByDay(context.Background(), "2025-03-10")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, winnerID, recs[0].ID)
	assert.Equal(t, winnerID, loser.Existing.ID)
	assert.Equal(t, recs[0], loser.Existing)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)

	rec := storetest.Record("r-1", "EMP001", ledger.MealEvening, 2, 10*time.Hour)
	res, err := s.InsertIfAbsent(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, res.Inserted)
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.FindByEmployeeAndDay(context.Background(), "EMP001", rec.ServiceDay)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	// GIVEN: A store whose connection has gone away
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	ctx := context.Background()

	// WHEN/THEN: Every operation reports StorageUnavailable
	_, err = s.FindByEmployeeAndDay(ctx, "EMP001", "2025-03-10")
	assert.True(t, ledger.IsUnavailable(err))

	_, err = s.InsertIfAbsent(ctx, storetest.Record("r-1", "EMP001", ledger.MealMorning, 1, 0))
	assert.True(t, ledger.IsUnavailable(err))

	_, err = s.ListByDay(ctx, "2025-03-10")
	assert.True(t, ledger.IsUnavailable(err))

	_, err = s.ListByEmployee(ctx, "EMP001")
	assert.True(t, ledger.IsUnavailable(err))
}

func TestStore_LedgerEndToEnd(t *testing.T) {
	l := ledger.New(newTestStore(t), ledger.UTCCalendar())
	ctx := context.Background()
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

	first, err := l.IssueMeal(ctx, "emp001", ledger.MealMorning, 1, now)
	require.NoError(t, err)
	require.True(t, first.Issued())

	second, err := l.IssueMeal(ctx, "EMP001", ledger.MealEvening, 2, now.Add(8*time.Hour))
	require.NoError(t, err)
	assert.False(t, second.Issued())
	assert.Equal(t, first.Record.ID, second.Rejection.RecordID)
}
