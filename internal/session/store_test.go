package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/txplain/tradeintent/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, time.Minute)
}

func TestLoadMemoryUnknownSessionIsEmpty(t *testing.T) {
	store := newTestStore(t)
	mem, err := store.LoadMemory(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Empty(t, mem)
}

func TestSaveThenLoadMemoryRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := models.Memory{models.NewTextMessage(models.RoleUser, "buy 10 PAS of DOT")}
	require.NoError(t, store.SaveMemory(ctx, "sess-1", mem))

	got, err := store.LoadMemory(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "buy 10 PAS of DOT", got[0].Text())
}

func TestGetSessionLockReturnsSameMutexForSameSession(t *testing.T) {
	store := newTestStore(t)
	a := store.GetSessionLock("sess-a")
	b := store.GetSessionLock("sess-a")
	require.Same(t, a, b)
}

func TestGetSessionLockDiffersAcrossSessions(t *testing.T) {
	store := newTestStore(t)
	a := store.GetSessionLock("sess-a")
	b := store.GetSessionLock("sess-b")
	require.NotSame(t, a, b)
}

func TestSweepLocksDropsStaleEntries(t *testing.T) {
	store := newTestStore(t)
	store.ttl = time.Millisecond
	store.GetSessionLock("stale")
	time.Sleep(5 * time.Millisecond)
	store.sweepLocks()
	_, ok := store.locks.Load("stale")
	require.False(t, ok)
}
