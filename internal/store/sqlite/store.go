// Package sqlite implements the counter store on SQLite, for single-node
// deployments that need counters to survive restarts. Expiries are stored
// as epoch milliseconds and every statement receives the current time as
// a parameter, so the process clock is the only time source.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"rate-gate/internal/common/errors"
	"rate-gate/internal/common/logging"
	"rate-gate/internal/store"
)

// DefaultSweepInterval is how often expired counter rows are purged.
const DefaultSweepInterval = time.Minute

type Config struct {
	DatabasePath  string
	SweepInterval time.Duration
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.ValidationError("database path is required")
	}

	if c.SweepInterval < 0 {
		return errors.ValidationError("sqlite sweep interval must not be negative")
	}

	return nil
}

func (c *Config) GetType() string {
	return "sqlite"
}

func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000", c.DatabasePath)
}

func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./rate_gate.db",
	}
}

// incrQuery creates or bumps a counter in one statement. A row whose
// deadline is at or before the supplied now is recreated with count 1
// and the fresh deadline; a live row keeps its deadline.
const incrQuery = `
INSERT INTO rate_counters (key, count, expires_at)
VALUES (?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
    count = CASE WHEN rate_counters.expires_at <= ?
        THEN 1
        ELSE rate_counters.count + 1 END,
    expires_at = CASE WHEN rate_counters.expires_at <= ?
        THEN excluded.expires_at
        ELSE rate_counters.expires_at END
RETURNING count, expires_at`

type Store struct {
	db        *sql.DB
	sweeper   *cron.Cron
	logger    logging.Logger
	closeOnce sync.Once
	now       func() time.Time
}

// New opens the database file, creates the counter table if needed and
// starts the sweep schedule.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return nil, errors.ConnectionError("failed to open sqlite database", err)
	}

	// SQLite locks the whole file per writer; one connection serializes
	// access instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.ConnectionError("failed to open sqlite database", err)
	}

	s := &Store{
		db:     db,
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "sqlite_store")),
		now:    time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	interval := config.SweepInterval
	if interval == 0 {
		interval = DefaultSweepInterval
	}

	s.sweeper = cron.New()
	if _, err := s.sweeper.AddFunc(fmt.Sprintf("@every %s", interval), s.sweep); err != nil {
		db.Close()
		return nil, errors.InternalError("failed to schedule counter sweep", err)
	}
	s.sweeper.Start()

	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rate_counters (
			key TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_counters_expires_at ON rate_counters(expires_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return errors.ConnectionError("failed to migrate counter table", err)
		}
	}

	return nil
}

func (s *Store) Incr(ctx context.Context, key string, ttl time.Duration) (store.IncrResult, error) {
	nowMs := s.now().UnixMilli()
	expiryMs := nowMs + ttl.Milliseconds()

	var count, expiresMs int64
	err := s.db.QueryRowContext(ctx, incrQuery, key, expiryMs, nowMs, nowMs).Scan(&count, &expiresMs)
	if err != nil {
		return store.IncrResult{}, errors.ConnectionError("counter increment failed", err)
	}

	return store.IncrResult{Count: count, ExpiresAt: time.UnixMilli(expiresMs)}, nil
}

func (s *Store) Peek(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM rate_counters WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixMilli()).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.ConnectionError("counter read failed", err)
	}
	return count, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	nowMs := s.now().UnixMilli()

	var expiresMs int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM rate_counters WHERE key = ? AND expires_at > ?`,
		key, nowMs).Scan(&expiresMs)
	if err == sql.ErrNoRows {
		return store.NoTTL, nil
	}
	if err != nil {
		return 0, errors.ConnectionError("counter ttl lookup failed", err)
	}
	return time.Duration(expiresMs-nowMs) * time.Millisecond, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rate_counters WHERE key = ?`, key); err != nil {
		return errors.ConnectionError("counter delete failed", err)
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.sweeper != nil {
			<-s.sweeper.Stop().Done()
		}
		err = s.db.Close()
	})
	return err
}

// Health pings the database, for readiness reporting.
func (s *Store) Health() error {
	return s.db.Ping()
}

func (s *Store) sweep() {
	res, err := s.db.Exec(`DELETE FROM rate_counters WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		s.logger.Warn("counter sweep failed", logging.Err(err))
		return
	}

	if removed, err := res.RowsAffected(); err == nil && removed > 0 {
		s.logger.Debug("swept expired counters", logging.Int64("removed", removed))
	}
}
