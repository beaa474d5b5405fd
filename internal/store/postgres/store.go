// Package postgres implements the counter store on PostgreSQL. A single
// INSERT ... ON CONFLICT statement performs the increment, the first-hit
// expiry and the rollover of dead windows in one atomic step, with the
// database clock as the only time source. Expired rows linger until a
// scheduled sweep removes them; reads filter them out in the meantime.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"rate-gate/internal/common/errors"
	"rate-gate/internal/common/logging"
	"rate-gate/internal/store"
)

// DefaultSweepInterval is how often expired counter rows are purged.
const DefaultSweepInterval = time.Minute

type Config struct {
	Host          string
	Port          int
	Database      string
	Username      string
	Password      string
	SSLMode       string
	SweepInterval time.Duration
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.ValidationError("postgres host is required")
	}

	if c.Port <= 0 {
		c.Port = 5432
	}

	if c.Database == "" {
		return errors.ValidationError("postgres database name is required")
	}

	if c.Username == "" {
		return errors.ValidationError("postgres username is required")
	}

	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}

	if c.SweepInterval < 0 {
		return errors.ValidationError("postgres sweep interval must not be negative")
	}

	return nil
}

func (c *Config) GetType() string {
	return "postgres"
}

func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// incrQuery creates the counter with count 1 and a fresh deadline, or
// bumps a live one without touching its deadline. A row whose deadline
// has passed is treated exactly like a missing one. now() is evaluated
// once per statement, so both CASE arms see the same instant.
const incrQuery = `
INSERT INTO rate_counters (key, count, expires_at)
VALUES ($1, 1, now() + make_interval(secs => $2))
ON CONFLICT (key) DO UPDATE SET
    count = CASE WHEN rate_counters.expires_at <= now()
        THEN 1
        ELSE rate_counters.count + 1 END,
    expires_at = CASE WHEN rate_counters.expires_at <= now()
        THEN now() + make_interval(secs => $2)
        ELSE rate_counters.expires_at END
RETURNING count, expires_at`

type Store struct {
	pool      *pgxpool.Pool
	sweeper   *cron.Cron
	logger    logging.Logger
	closeOnce sync.Once
}

// New opens a connection pool, verifies it, creates the counter table if
// needed and starts the sweep schedule.
func New(config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return nil, errors.ConnectionError("failed to open postgres pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.ConnectionError("failed to connect to postgres", err)
	}

	s := &Store{
		pool:   pool,
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "postgres_store")),
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	interval := config.SweepInterval
	if interval == 0 {
		interval = DefaultSweepInterval
	}

	s.sweeper = cron.New()
	if _, err := s.sweeper.AddFunc(fmt.Sprintf("@every %s", interval), s.sweep); err != nil {
		pool.Close()
		return nil, errors.InternalError("failed to schedule counter sweep", err)
	}
	s.sweeper.Start()

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rate_counters (
			key TEXT PRIMARY KEY,
			count BIGINT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_counters_expires_at ON rate_counters(expires_at)`,
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return errors.ConnectionError("failed to migrate counter table", err)
		}
	}

	return nil
}

func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (store.IncrResult, error) {
	var res store.IncrResult
	err := s.pool.QueryRow(ctx, incrQuery, key, ttl.Seconds()).Scan(&res.Count, &res.ExpiresAt)
	if err != nil {
		return store.IncrResult{}, errors.ConnectionError("counter increment failed", err)
	}
	return res, nil
}

func (s *Store) Peek(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count FROM rate_counters WHERE key = $1 AND expires_at > now()`,
		key).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.ConnectionError("counter read failed", err)
	}
	return count, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	var remainingMs int64
	err := s.pool.QueryRow(ctx,
		`SELECT (extract(epoch FROM (expires_at - now())) * 1000)::bigint
		 FROM rate_counters WHERE key = $1 AND expires_at > now()`,
		key).Scan(&remainingMs)
	if err == pgx.ErrNoRows {
		return store.NoTTL, nil
	}
	if err != nil {
		return 0, errors.ConnectionError("counter ttl lookup failed", err)
	}
	return time.Duration(remainingMs) * time.Millisecond, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM rate_counters WHERE key = $1`, key); err != nil {
		return errors.ConnectionError("counter delete failed", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.sweeper != nil {
			<-s.sweeper.Stop().Done()
		}
		s.pool.Close()
	})
	return nil
}

// Health pings the database, for readiness reporting.
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM rate_counters WHERE expires_at <= now()`)
	if err != nil {
		s.logger.Warn("counter sweep failed", logging.Err(err))
		return
	}

	if removed := tag.RowsAffected(); removed > 0 {
		s.logger.Debug("swept expired counters", logging.Int64("removed", removed))
	}
}
