// Package redis implements the counter store on Redis. A single Lua
// script performs the increment, the first-hit expiry and the TTL read
// in one server-side step, so concurrent clients can never observe a
// counter without a deadline.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"rate-gate/internal/common/errors"
	"rate-gate/internal/store"
)

// incrLua increments the key, attaches the window expiry only when this
// call created the key, and reports the post-increment count together
// with the remaining TTL in milliseconds. Running INCR and PEXPIRE as
// separate round trips would leave a window where the key exists
// without an expiry; the script closes it.
const incrLua = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func (c *Config) Validate() error {
	if c.DB < 0 {
		return errors.ValidationError("redis db must not be negative")
	}
	if c.PoolSize < 0 {
		return errors.ValidationError("redis pool size must not be negative")
	}
	return nil
}

func (c *Config) GetType() string {
	return "redis"
}

type Store struct {
	rdb       *redis.Client
	script    *redis.Script
	closeOnce sync.Once
	now       func() time.Time
}

// New dials Redis and verifies the connection before returning.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = &Config{}
	}
	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.ConnectionError("failed to connect to redis", err)
	}

	return NewWithClient(rdb), nil
}

// NewWithClient wraps an already connected client. The store takes
// ownership and closes the client on Close.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{
		rdb:    rdb,
		script: redis.NewScript(incrLua),
		now:    time.Now,
	}
}

func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (store.IncrResult, error) {
	values, err := s.script.Run(ctx, s.rdb, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		return store.IncrResult{}, errors.ConnectionError("counter increment failed", err)
	}

	reply, ok := values.([]interface{})
	if !ok || len(reply) != 2 {
		return store.IncrResult{}, errors.InternalError(fmt.Sprintf("unexpected increment reply: %v", values), nil)
	}
	count, countOK := reply[0].(int64)
	pttl, pttlOK := reply[1].(int64)
	if !countOK || !pttlOK {
		return store.IncrResult{}, errors.InternalError(fmt.Sprintf("unexpected increment reply: %v", values), nil)
	}

	// PTTL can come back negative when the expiry raced away between the
	// script's PEXPIRE and its read. Fall back to the requested window.
	expiresAt := s.now().Add(ttl)
	if pttl > 0 {
		expiresAt = s.now().Add(time.Duration(pttl) * time.Millisecond)
	}

	return store.IncrResult{Count: count, ExpiresAt: expiresAt}, nil
}

func (s *Store) Peek(ctx context.Context, key string) (int64, error) {
	count, err := s.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.ConnectionError("counter read failed", err)
	}
	return count, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, errors.ConnectionError("counter ttl lookup failed", err)
	}
	// Redis reports -2 for a missing key and -1 for a key without an
	// expiry; both mean there is no live window.
	if ttl < 0 {
		return store.NoTTL, nil
	}
	return ttl, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return errors.ConnectionError("counter delete failed", err)
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.rdb.Close()
	})
	return err
}

// Health pings the server, for readiness reporting.
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}
