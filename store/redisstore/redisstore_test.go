package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
	"github.com/Krishna78600/Samosa-Man-App/ledger/storetest"
	"github.com/Krishna78600/Samosa-Man-App/store/redisstore"
)

func newTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := redisstore.Open(context.Background(), redisstore.Options{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestStore_KeyLayout(t *testing.T) {
	// GIVEN: One morning meal for EMP001
	s, mr := newTestStore(t)
	rec := storetest.Record("r-1", "EMP001", ledger.MealMorning, 2, 0)

	// WHEN: It is inserted
	res, err := s.InsertIfAbsent(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, res.Inserted)

	// THEN: The record and both indexes exist under the default prefix
	assert.True(t, mr.Exists("meal:issuance:2025-03-10:EMP001"))
	members, err := mr.ZMembers("meal:day:2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"EMP001"}, members)
	score, err := mr.ZScore("meal:employee:EMP001", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, float64(rec.ServedAtMillis), score)
}

func TestStore_RejectedInsertLeavesIndexesAlone(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	first := storetest.Record("r-1", "EMP001", ledger.MealMorning, 1, 0)
	_, err := s.InsertIfAbsent(ctx, first)
	require.NoError(t, err)

	res, err := s.InsertIfAbsent(ctx, storetest.Record("r-2", "EMP001", ledger.MealEvening, 3, 9*time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, "r-1", res.Existing.ID)

	score, err := mr.ZScore("meal:day:2025-03-10", "EMP001")
	require.NoError(t, err)
	assert.Equal(t, float64(first.ServedAtMillis), score)
}

func TestStore_CustomPrefixOnSharedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := redisstore.New(client, "{canteen}", nil)

	_, err := s.InsertIfAbsent(context.Background(), storetest.Record("r-1", "EMP001", ledger.MealMorning, 1, 0))
	require.NoError(t, err)

	assert.True(t, mr.Exists("{canteen}:issuance:2025-03-10:EMP001"))
	require.NoError(t, s.Close())
	assert.NoError(t, client.Ping(context.Background()).Err(), "shared client stays open")
}

func TestStore_ServerDownIsUnavailable(t *testing.T) {
	// GIVEN: Redis goes away after start
	s, mr := newTestStore(t)
	mr.Close()
	ctx := context.Background()

	// WHEN/THEN: Every operation reports StorageUnavailable
	_, err := s.FindByEmployeeAndDay(ctx, "EMP001", "2025-03-10")
	assert.True(t, ledger.IsUnavailable(err))

	_, err = s.InsertIfAbsent(ctx, storetest.Record("r-1", "EMP001", ledger.MealMorning, 1, 0))
	assert.True(t, ledger.IsUnavailable(err))

	_, err = s.ListByDay(ctx, "2025-03-10")
	assert.True(t, ledger.IsUnavailable(err))

	_, err = s.ListByEmployee(ctx, "EMP001")
	assert.True(t, ledger.IsUnavailable(err))
}

func TestOpen_RequiresAddr(t *testing.T) {
	_, err := redisstore.Open(context.Background(), redisstore.Options{}, nil)
	assert.Error(t, err)
}
