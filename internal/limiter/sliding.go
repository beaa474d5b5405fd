package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"rate-gate/internal/store"
)

// slidingWindow approximates a continuously sliding window with two fixed
// counters: the current window (index floor(now/window)) and the one before
// it. The previous window's count is weighted by how much of it still
// overlaps the sliding span and added to the current count:
//
//	effective = ceil(previous*(1 - elapsed/window) + current)
//
// The weight descends linearly from 1 at the start of the current window to
// 0 at its end, so a burst that filled the previous window fades out
// gradually instead of vanishing at the boundary. This keeps storage at two
// keys per identifier instead of a per-event log, at the cost of one extra
// read per check and a small overcount near boundaries.
type slidingWindow struct {
	store  store.Store
	limit  int
	window time.Duration
}

func (s *slidingWindow) check(ctx context.Context, key string, now time.Time) (Decision, error) {
	windowMs := s.window.Milliseconds()
	idx := now.UnixMilli() / windowMs

	currentKey := fmt.Sprintf("%s:%d", key, idx)
	prevKey := fmt.Sprintf("%s:%d", key, idx-1)

	// The current counter lives for two windows, not one, so that the next
	// window can still read it as its "previous" count.
	res, err := s.store.Incr(ctx, currentKey, ceilSeconds(2*s.window))
	if err != nil {
		return Decision{}, err
	}

	prev, err := s.store.Peek(ctx, prevKey)
	if err != nil {
		return Decision{}, err
	}

	elapsed := now.UnixMilli() - idx*windowMs
	overlap := 1 - float64(elapsed)/float64(windowMs)
	effective := int64(math.Ceil(float64(prev)*overlap + float64(res.Count)))

	resetAt := time.UnixMilli((idx + 1) * windowMs)
	return newDecision(effective, s.limit, resetAt, now), nil
}

func (s *slidingWindow) inspect(ctx context.Context, key string, now time.Time) (Decision, error) {
	windowMs := s.window.Milliseconds()
	idx := now.UnixMilli() / windowMs

	current, err := s.store.Peek(ctx, fmt.Sprintf("%s:%d", key, idx))
	if err != nil {
		return Decision{}, err
	}

	prev, err := s.store.Peek(ctx, fmt.Sprintf("%s:%d", key, idx-1))
	if err != nil {
		return Decision{}, err
	}

	elapsed := now.UnixMilli() - idx*windowMs
	overlap := 1 - float64(elapsed)/float64(windowMs)
	effective := int64(math.Ceil(float64(prev)*overlap + float64(current)))

	resetAt := time.UnixMilli((idx + 1) * windowMs)
	return newDecision(effective, s.limit, resetAt, now), nil
}

func (s *slidingWindow) reset(ctx context.Context, key string, now time.Time) error {
	windowMs := s.window.Milliseconds()
	idx := now.UnixMilli() / windowMs

	if err := s.store.Delete(ctx, fmt.Sprintf("%s:%d", key, idx)); err != nil {
		return err
	}
	return s.store.Delete(ctx, fmt.Sprintf("%s:%d", key, idx-1))
}
