// Package memory provides the in-process counter store.
//
// Counters live in a map guarded by a mutex, so concurrent increments on the
// same key are strictly serialized. A janitor goroutine sweeps expired
// entries on a fixed interval to bound memory growth; reads and increments
// never wait on the sweep beyond ordinary lock contention.
package memory

import (
	"context"
	"sync"
	"time"

	"rate-gate/internal/common/errors"
	"rate-gate/internal/common/logging"
	"rate-gate/internal/store"
)

// DefaultCleanupInterval is how often the janitor runs when the
// configuration does not say otherwise.
const DefaultCleanupInterval = time.Minute

// Config holds memory store settings.
type Config struct {
	// CleanupInterval is the time between janitor sweeps. Zero means
	// DefaultCleanupInterval.
	CleanupInterval time.Duration
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.CleanupInterval < 0 {
		return errors.ValidationError("memory store cleanup interval cannot be negative")
	}
	return nil
}

// GetType returns the registry name of this backend.
func (c *Config) GetType() string {
	return "memory"
}

type entry struct {
	count     int64
	expiresAt time.Time
}

// Store is the in-process counter store.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	logger logging.Logger
	now    func() time.Time
}

// New creates a memory store and starts its janitor. A nil config uses
// defaults.
func New(cfg *Config) *Store {
	interval := DefaultCleanupInterval
	if cfg != nil && cfg.CleanupInterval > 0 {
		interval = cfg.CleanupInterval
	}

	s := &Store{
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "memory_store"}),
		now:     time.Now,
	}

	s.wg.Add(1)
	go s.janitor(interval)

	return s
}

// Incr adds one to the counter at key, creating it with an expiry of
// now+ttl when no live counter exists. The expiry of a live counter is
// never touched.
func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (store.IncrResult, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &entry{count: 1, expiresAt: now.Add(ttl)}
		s.entries[key] = e
		return store.IncrResult{Count: 1, ExpiresAt: e.expiresAt}, nil
	}

	e.count++
	return store.IncrResult{Count: e.count, ExpiresAt: e.expiresAt}, nil
}

// Peek returns the live count at key, or 0 when absent or expired.
func (s *Store) Peek(ctx context.Context, key string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

// TTL reports the remaining lifetime of key, or store.NoTTL when absent
// or expired.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return store.NoTTL, nil
	}
	return e.expiresAt.Sub(now), nil
}

// Delete removes the counter at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Close stops the janitor. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	return nil
}

// Len reports the number of entries currently held, live or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) janitor(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				s.logger.Debug("Swept expired counters", logging.Int("removed", removed))
			}
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
