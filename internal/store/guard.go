package store

import (
	"context"
	"time"

	"rate-gate/internal/circuitbreaker"
)

// Guard wraps a network-backed Store with a circuit breaker. While the
// breaker is open every call fails fast with an unavailable-typed error
// instead of waiting out a dead backend's timeout. The guard never turns
// a failure into a decision; errors still propagate to the caller.
type Guard struct {
	inner   Store
	breaker *circuitbreaker.Breaker
}

// NewGuard wraps inner with the given breaker.
func NewGuard(inner Store, breaker *circuitbreaker.Breaker) *Guard {
	return &Guard{inner: inner, breaker: breaker}
}

func (g *Guard) Incr(ctx context.Context, key string, ttl time.Duration) (IncrResult, error) {
	var res IncrResult
	err := g.breaker.Execute(ctx, func() error {
		var innerErr error
		res, innerErr = g.inner.Incr(ctx, key, ttl)
		return innerErr
	})
	if err != nil {
		return IncrResult{}, err
	}
	return res, nil
}

func (g *Guard) Peek(ctx context.Context, key string) (int64, error) {
	var count int64
	err := g.breaker.Execute(ctx, func() error {
		var innerErr error
		count, innerErr = g.inner.Peek(ctx, key)
		return innerErr
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (g *Guard) TTL(ctx context.Context, key string) (time.Duration, error) {
	var ttl time.Duration
	err := g.breaker.Execute(ctx, func() error {
		var innerErr error
		ttl, innerErr = g.inner.TTL(ctx, key)
		return innerErr
	})
	if err != nil {
		return NoTTL, err
	}
	return ttl, nil
}

func (g *Guard) Delete(ctx context.Context, key string) error {
	return g.breaker.Execute(ctx, func() error {
		return g.inner.Delete(ctx, key)
	})
}

// Close releases the underlying store. It is deliberately not routed
// through the breaker so shutdown still works while the circuit is open.
func (g *Guard) Close() error {
	return g.inner.Close()
}

// Health pings the underlying store when it supports health checks. Routed
// through the breaker, so an open circuit reports unhealthy immediately.
func (g *Guard) Health() error {
	hc, ok := g.inner.(interface{ Health() error })
	if !ok {
		return nil
	}
	return g.breaker.Execute(context.Background(), hc.Health)
}

// Breaker exposes the guard's circuit breaker for health reporting.
func (g *Guard) Breaker() *circuitbreaker.Breaker {
	return g.breaker
}
