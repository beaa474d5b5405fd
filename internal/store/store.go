// Package store defines the counter storage capability the rate limiter
// algorithms run against, and a registry for its concrete backends.
//
// A Store holds one integer counter per key. The counter is created by the
// first Incr with an expiry fixed at creation time; later increments never
// extend it. Everything an algorithm needs is expressed through the four
// operations below, so any backend that can increment-with-expiry atomically
// can be substituted.
package store

import (
	"context"
	"time"
)

// NoTTL is reported by TTL when the key is absent or already expired.
const NoTTL = time.Duration(-1)

// IncrResult is the outcome of one atomic counter increment.
type IncrResult struct {
	// Count is the counter value after this increment.
	Count int64
	// ExpiresAt is when the counter's window ends. It is fixed when the
	// counter is created and unchanged by subsequent increments.
	ExpiresAt time.Time
}

// Store is the capability set a counter backend provides.
//
// Incr must be atomic with respect to concurrent callers on the same key.
// That single property carries the correctness of every limiter built on
// top: two clients incrementing the same key concurrently must observe
// distinct, consecutive counts.
type Store interface {
	// Incr adds one to the counter at key. If no live counter exists it is
	// created with count 1 and an expiry of now+ttl; otherwise the existing
	// expiry is returned unchanged.
	Incr(ctx context.Context, key string, ttl time.Duration) (IncrResult, error)

	// Peek reads the live count at key without mutating anything.
	// It returns 0 when the key is absent or expired.
	Peek(ctx context.Context, key string) (int64, error)

	// TTL reports the remaining lifetime of key, or NoTTL when the key is
	// absent or expired. It never counts as an increment.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes the counter at key immediately, regardless of expiry.
	Delete(ctx context.Context, key string) error

	// Close releases any timers or connections the store holds.
	// Implementations are safe to close more than once.
	Close() error
}
