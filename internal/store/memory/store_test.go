package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rate-gate/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setupTestStore(t *testing.T) (*Store, *fakeClock) {
	s := New(nil)
	t.Cleanup(func() { s.Close() })

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s.now = clock.Now

	return s, clock
}

func TestIncr(t *testing.T) {
	ctx := context.Background()

	t.Run("creates counter with count 1 and expiry", func(t *testing.T) {
		s, clock := setupTestStore(t)

		res, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		assert.Equal(t, int64(1), res.Count)
		assert.Equal(t, clock.Now().Add(10*time.Second), res.ExpiresAt)
	})

	t.Run("increments without touching expiry", func(t *testing.T) {
		s, clock := setupTestStore(t)

		first, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		clock.Advance(3 * time.Second)

		second, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		assert.Equal(t, int64(2), second.Count)
		assert.Equal(t, first.ExpiresAt, second.ExpiresAt)
	})

	t.Run("expired counter rolls over to a fresh window", func(t *testing.T) {
		s, clock := setupTestStore(t)

		_, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)
		_, err = s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		clock.Advance(11 * time.Second)

		res, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		assert.Equal(t, int64(1), res.Count)
		assert.Equal(t, clock.Now().Add(10*time.Second), res.ExpiresAt)
	})

	t.Run("distinct keys never share state", func(t *testing.T) {
		s, _ := setupTestStore(t)

		for i := 0; i < 5; i++ {
			_, err := s.Incr(ctx, "a", 10*time.Second)
			require.NoError(t, err)
		}

		res, err := s.Incr(ctx, "b", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Count)
	})
}

func TestPeek(t *testing.T) {
	ctx := context.Background()

	t.Run("absent key reads zero", func(t *testing.T) {
		s, _ := setupTestStore(t)

		count, err := s.Peek(ctx, "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("reads live count without incrementing", func(t *testing.T) {
		s, _ := setupTestStore(t)

		_, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)
		_, err = s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			count, err := s.Peek(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		}
	})

	t.Run("expired key reads zero", func(t *testing.T) {
		s, clock := setupTestStore(t)

		_, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		clock.Advance(11 * time.Second)

		count, err := s.Peek(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("never-incremented key has no ttl", func(t *testing.T) {
		s, _ := setupTestStore(t)

		ttl, err := s.TTL(ctx, "missing")
		require.NoError(t, err)
		assert.Equal(t, store.NoTTL, ttl)
	})

	t.Run("ttl after increment is within the supplied window", func(t *testing.T) {
		s, clock := setupTestStore(t)

		_, err := s.Incr(ctx, "k", 30*time.Second)
		require.NoError(t, err)

		ttl, err := s.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, 30*time.Second)

		clock.Advance(10 * time.Second)

		ttl, err = s.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 20*time.Second, ttl)
	})

	t.Run("expired key has no ttl", func(t *testing.T) {
		s, clock := setupTestStore(t)

		_, err := s.Incr(ctx, "k", 30*time.Second)
		require.NoError(t, err)

		clock.Advance(31 * time.Second)

		ttl, err := s.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, store.NoTTL, ttl)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete then increment starts a fresh window", func(t *testing.T) {
		s, clock := setupTestStore(t)

		_, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)
		_, err = s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "k"))

		res, err := s.Incr(ctx, "k", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Count)
		assert.Equal(t, clock.Now().Add(10*time.Second), res.ExpiresAt)
	})

	t.Run("delete of a missing key is a no-op", func(t *testing.T) {
		s, _ := setupTestStore(t)
		assert.NoError(t, s.Delete(ctx, "missing"))
	})
}

func TestConcurrentIncr(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, err := s.Incr(ctx, "shared", time.Minute)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	// No lost updates
	count, err := s.Peek(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perGoroutine), count)
}

func TestSweep(t *testing.T) {
	t.Run("sweep removes only expired entries", func(t *testing.T) {
		s, clock := setupTestStore(t)
		ctx := context.Background()

		_, err := s.Incr(ctx, "short", 5*time.Second)
		require.NoError(t, err)
		_, err = s.Incr(ctx, "long", time.Hour)
		require.NoError(t, err)

		clock.Advance(6 * time.Second)

		removed := s.sweep()
		assert.Equal(t, 1, removed)
		assert.Equal(t, 1, s.Len())

		count, err := s.Peek(ctx, "long")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("janitor sweeps in the background", func(t *testing.T) {
		s := New(&Config{CleanupInterval: 10 * time.Millisecond})
		defer s.Close()

		clock := &fakeClock{t: time.Unix(1700000000, 0)}
		s.now = clock.Now

		ctx := context.Background()
		_, err := s.Incr(ctx, "k", time.Second)
		require.NoError(t, err)

		clock.Advance(2 * time.Second)

		assert.Eventually(t, func() bool {
			return s.Len() == 0
		}, time.Second, 10*time.Millisecond)
	})
}

func TestClose(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		s := New(nil)

		assert.NoError(t, s.Close())
		assert.NoError(t, s.Close())
	})

	t.Run("operations still answer after close", func(t *testing.T) {
		s := New(nil)
		require.NoError(t, s.Close())

		ctx := context.Background()
		res, err := s.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Count)
	})
}
