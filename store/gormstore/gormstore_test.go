package gormstore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
	"github.com/Krishna78600/Samosa-Man-App/ledger/storetest"
	"github.com/Krishna78600/Samosa-Man-App/store/gormstore"
)

func newTestStore(t *testing.T) *gormstore.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := gormstore.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store {
		return newTestStore(t)
	})
}

func TestStore_ConcurrentWritersOnFile(t *testing.T) {
	// GIVEN: A file database with a connection pool, so writers contend in SQLite itself
	dsn := filepath.Join(t.TempDir(), "meals.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	s, err := gormstore.OpenSQLite(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// WHEN: Twenty counters serve EMP002 at once
	const writers = 20
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results [writers]ledger.InsertResult
		errs    [writers]error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := storetest.Record(fmt.Sprintf("w-%02d", i), "EMP002", ledger.MealMorning, ledger.CounterID(i+1), time.Duration(i)*time.Millisecond)
			<-start
			results[i], errs[i] = s.InsertIfAbsent(context.Background(), rec)
		}(i)
	}
	close(start)
	wg.Wait()

	// THEN: Exactly one insert wins and every loser sees the winner
	var winnerID string
	inserted := 0
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		if results[i].Inserted {
			inserted++
			winnerID = fmt.Sprintf("w-%02d", i)
		}
	}
	require.Equal(t, 1, inserted)
	for i := 0; i < writers; i++ {
		if !results[i].Inserted {
			assert.Equal(t, winnerID, results[i].Existing.ID)
		}
	}

	recs, err := s.ListByDay(context.Background(), "2025-03-10")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, winnerID, recs[0].ID)
}

func TestStore_ReusedRecordIDIsAFailure(t *testing.T) {
	// GIVEN: A record stored under id r-1
	s := newTestStore(t)
	ctx := context.Background()
	res, err := s.InsertIfAbsent(ctx, storetest.Record("r-1", "EMP001", ledger.MealMorning, 1, 0))
	require.NoError(t, err)
	require.True(t, res.Inserted)

	// WHEN: A different employee arrives with the same id
	_, err = s.InsertIfAbsent(ctx, storetest.Record("r-1", "EMP002", ledger.MealMorning, 1, time.Minute))

	// THEN: There is no winner to report, so it is a storage failure
	require.Error(t, err)
	assert.True(t, ledger.IsUnavailable(err))
}

func TestStore_ClosedIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListByDay(context.Background(), "2025-03-10")

	require.Error(t, err)
	assert.True(t, ledger.IsUnavailable(err))
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
