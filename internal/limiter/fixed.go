package limiter

import (
	"context"
	"time"

	"rate-gate/internal/store"
)

// algorithm turns one check against a counter key into a Decision.
// inspect reports the same state without consuming quota, and reset
// clears whatever counters the algorithm keeps for the key.
type algorithm interface {
	check(ctx context.Context, key string, now time.Time) (Decision, error)
	inspect(ctx context.Context, key string, now time.Time) (Decision, error)
	reset(ctx context.Context, key string, now time.Time) error
}

// fixedWindow counts every hit against a single counter whose expiry is set
// when the window opens. Simple and one store call per check, but a burst
// straddling a window boundary can pass up to twice the limit: the limit at
// the end of one window and the limit again at the start of the next. The
// sliding window algorithm exists to smooth exactly that.
type fixedWindow struct {
	store  store.Store
	limit  int
	window time.Duration
}

func (f *fixedWindow) check(ctx context.Context, key string, now time.Time) (Decision, error) {
	res, err := f.store.Incr(ctx, key, ceilSeconds(f.window))
	if err != nil {
		return Decision{}, err
	}

	return newDecision(res.Count, f.limit, res.ExpiresAt, now), nil
}

func (f *fixedWindow) inspect(ctx context.Context, key string, now time.Time) (Decision, error) {
	count, err := f.store.Peek(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	ttl, err := f.store.TTL(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	// No live window means the next hit opens a fresh one.
	resetAt := now
	if ttl > 0 {
		resetAt = now.Add(ttl)
	}

	return newDecision(count, f.limit, resetAt, now), nil
}

func (f *fixedWindow) reset(ctx context.Context, key string, now time.Time) error {
	return f.store.Delete(ctx, key)
}
