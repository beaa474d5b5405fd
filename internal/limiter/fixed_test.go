package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rate-gate/internal/common/errors"
)

func TestFixedWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("counts up to the limit then denies", func(t *testing.T) {
		fs := newFakeStore()
		fw := &fixedWindow{store: fs, limit: 3, window: time.Minute}

		for i := 1; i <= 3; i++ {
			d, err := fw.check(ctx, "rl:a", time.Now())
			require.NoError(t, err)
			assert.True(t, d.Allowed, "check %d", i)
			assert.Equal(t, 3-i, d.Remaining)
		}

		d, err := fw.check(ctx, "rl:a", time.Now())
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.GreaterOrEqual(t, d.RetryAfter, time.Second)
	})

	t.Run("reset is the stored window expiry", func(t *testing.T) {
		fs := newFakeStore()
		fw := &fixedWindow{store: fs, limit: 3, window: time.Minute}

		d, err := fw.check(ctx, "rl:b", time.Now())
		require.NoError(t, err)
		assert.True(t, d.ResetAt.Equal(fs.expires["rl:b"]))

		// A later hit in the same window reports the same expiry.
		d2, err := fw.check(ctx, "rl:b", time.Now())
		require.NoError(t, err)
		assert.True(t, d2.ResetAt.Equal(d.ResetAt))
	})

	t.Run("window rounds up to whole seconds for storage", func(t *testing.T) {
		fs := newFakeStore()
		fw := &fixedWindow{store: fs, limit: 3, window: 90*time.Second + 500*time.Millisecond}

		_, err := fw.check(ctx, "rl:c", time.Now())
		require.NoError(t, err)
		assert.Equal(t, 91*time.Second, fs.ttls["rl:c"])
	})

	t.Run("store errors propagate", func(t *testing.T) {
		fs := newFakeStore()
		fs.err = errors.ConnectionError("backend down", nil)
		fw := &fixedWindow{store: fs, limit: 3, window: time.Minute}

		_, err := fw.check(ctx, "rl:d", time.Now())
		assert.Equal(t, fs.err, err)
	})
}

func TestFixedWindowInspect(t *testing.T) {
	ctx := context.Background()

	t.Run("reads the count without consuming", func(t *testing.T) {
		fs := newFakeStore()
		fw := &fixedWindow{store: fs, limit: 5, window: time.Minute}

		for i := 0; i < 2; i++ {
			_, err := fw.check(ctx, "rl:a", time.Now())
			require.NoError(t, err)
		}

		for i := 0; i < 3; i++ {
			d, err := fw.inspect(ctx, "rl:a", time.Now())
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 3, d.Remaining, "inspect %d must not consume", i)
		}
		assert.Equal(t, int64(2), fs.counts["rl:a"])
	})

	t.Run("unseen identifier reports a full window", func(t *testing.T) {
		fs := newFakeStore()
		fw := &fixedWindow{store: fs, limit: 5, window: time.Minute}

		now := time.Now()
		d, err := fw.inspect(ctx, "rl:new", now)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 5, d.Remaining)
		assert.True(t, d.ResetAt.Equal(now))
	})

	t.Run("exhausted identifier reports denial", func(t *testing.T) {
		fs := newFakeStore()
		fw := &fixedWindow{store: fs, limit: 2, window: time.Minute}

		for i := 0; i < 3; i++ {
			_, err := fw.check(ctx, "rl:b", time.Now())
			require.NoError(t, err)
		}

		d, err := fw.inspect(ctx, "rl:b", time.Now())
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.GreaterOrEqual(t, d.RetryAfter, time.Second)
	})
}

func TestFixedWindowReset(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fw := &fixedWindow{store: fs, limit: 1, window: time.Minute}

	_, err := fw.check(ctx, "rl:a", time.Now())
	require.NoError(t, err)
	d, err := fw.check(ctx, "rl:a", time.Now())
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.NoError(t, fw.reset(ctx, "rl:a", time.Now()))

	d, err = fw.check(ctx, "rl:a", time.Now())
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
