package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func exerciseWindow(t *testing.T, store Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()
	const limit = 3
	window := 15 * time.Minute

	for i := 0; i < limit; i++ {
		res, err := store.Hit(ctx, "auth:/auth/login:ip:10.0.0.1", limit, window)
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, limit-i-1, res.Remaining)
		clock.Advance(time.Minute)
	}

	res, err := store.Hit(ctx, "auth:/auth/login:ip:10.0.0.1", limit, window)
	require.NoError(t, err)
	require.False(t, res.Allowed, "N+1th request inside the window is rejected")
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, 12*time.Minute, res.RetryAfter)

	other, err := store.Hit(ctx, "auth:/auth/login:ip:10.0.0.2", limit, window)
	require.NoError(t, err)
	require.True(t, other.Allowed, "identities are independent")

	clock.Advance(12 * time.Minute)
	res, err = store.Hit(ctx, "auth:/auth/login:ip:10.0.0.1", limit, window)
	require.NoError(t, err)
	require.True(t, res.Allowed, "oldest hit slid out of the window")
}

func TestMemoryStoreSlidingWindow(t *testing.T) {
	clock := newClock()
	exerciseWindow(t, NewMemoryStore().WithClock(clock.Now), clock)
}

func TestRedisStoreSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newClock()
	exerciseWindow(t, NewRedisStore(client, "rl:").WithClock(clock.Now), clock)

	require.True(t, mr.Exists("rl:auth:/auth/login:ip:10.0.0.1"))
	require.Greater(t, mr.TTL("rl:auth:/auth/login:ip:10.0.0.1"), time.Duration(0))
}

func TestMemoryStoreSweepDropsIdleKeys(t *testing.T) {
	clock := newClock()
	store := NewMemoryStore().WithClock(clock.Now)
	ctx := context.Background()

	_, err := store.Hit(ctx, "a", 10, time.Minute)
	require.NoError(t, err)
	_, err = store.Hit(ctx, "b", 10, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	require.Equal(t, 1, store.Sweep(clock.Now().Add(2*time.Minute)))
	require.Equal(t, 1, store.Len())
}

func TestBreakerStoreFallsBackWhenRedisFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	clock := newClock()
	local := NewMemoryStore().WithClock(clock.Now)
	store := NewBreakerStore(NewRedisStore(client, "rl:").WithClock(clock.Now), local,
		BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Minute}, zerolog.Nop())

	res, err := store.Hit(context.Background(), "k", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Zero(t, local.Len())

	mr.Close()

	res, err = store.Hit(context.Background(), "k", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, local.Len())
	require.Equal(t, "open", store.State())
}

func TestJanitorSweepsUntilCancelled(t *testing.T) {
	store := NewMemoryStore().WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	_, err := store.Hit(context.Background(), "old", 1, time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewJanitor(store, 5*time.Millisecond, zerolog.Nop()).Serve(ctx) }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
