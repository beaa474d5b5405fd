// Package config provides configuration management for the rate gate service.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration to ensure the service starts safely.
//
// The package supports multiple counter storage backends (in-memory, Redis,
// PostgreSQL, and SQLite), both rate limit algorithms, and pluggable request
// identification including JWT subjects.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Counter Storage:
//   - STORAGE_TYPE: Backend type - "memory", "redis", "postgres" or "sqlite" (default: memory)
//   - CLEANUP_INTERVAL: How often expired counters are swept (default: 1m)
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - POSTGRES_HOST: PostgreSQL host (required if using PostgreSQL)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (required if using PostgreSQL)
//   - POSTGRES_USER: PostgreSQL username (required if using PostgreSQL)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: prefer)
//   - SQLITE_PATH: SQLite database file path (default: ./rate_gate.db)
//
// Rate Limiting:
//   - RATE_LIMIT: Requests allowed per window (default: 10)
//   - RATE_WINDOW: Window length, e.g. "30s", "1m", "1.5m", or bare milliseconds (default: 1m)
//   - RATE_ALGORITHM: "fixed-window" or "sliding-window" (default: fixed-window)
//   - RATE_PREFIX: Key prefix namespacing this service's counters (default: rl)
//   - RATE_SKIP_HEADERS: Suppress X-RateLimit-* response headers (default: false)
//
// Request Identification:
//   - KEY_STRATEGY: "ip", "endpoint", "combined" or "jwt" (default: ip)
//   - JWT_SECRET: HMAC secret for the jwt strategy (required for it, minimum 32 characters)
//
// Example usage:
//
//	// Load configuration from environment
//	config := config.Load()
//
//	// Validate configuration
//	if err := config.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//
//	// Use configuration
//	server := &http.Server{
//		Addr: ":" + config.Port,
//	}
package config

import (
	"fmt"
	"os"
	"strconv"

	"rate-gate/internal/common/utils"
)

// Storage backend selectors accepted in STORAGE_TYPE.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Key strategy selectors accepted in KEY_STRATEGY.
const (
	KeyStrategyIP       = "ip"
	KeyStrategyEndpoint = "endpoint"
	KeyStrategyCombined = "combined"
	KeyStrategyJWT      = "jwt"
)

// Config holds all configuration values for the rate gate service. All
// string fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Counter storage configuration
	StorageType     string // Backend type: "memory", "redis", "postgres" or "sqlite"
	CleanupInterval string // Sweep interval for expired counters

	// Redis backend
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// PostgreSQL backend
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode (disable, prefer, require, ...)

	// SQLite backend
	SQLitePath string // Path to the SQLite database file

	// Rate limiting configuration
	RateLimit       string // Requests allowed per window
	RateWindow      string // Window length ("30s", "1m", bare milliseconds, ...)
	RateAlgorithm   string // "fixed-window" or "sliding-window"
	RatePrefix      string // Key prefix for this service's counters
	RateSkipHeaders bool   // Whether to suppress X-RateLimit-* headers

	// Request identification
	KeyStrategy string // "ip", "endpoint", "combined" or "jwt"
	JWTSecret   string // HMAC secret for the jwt strategy
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding
// default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Counter storage configuration
		StorageType:     getEnv("STORAGE_TYPE", StorageMemory),
		CleanupInterval: getEnv("CLEANUP_INTERVAL", "1m"),

		// Redis configuration
		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		// PostgreSQL configuration
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "rate_gate"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "prefer"),

		// SQLite configuration
		SQLitePath: getEnv("SQLITE_PATH", "./rate_gate.db"),

		// Rate limiting configuration
		RateLimit:       getEnv("RATE_LIMIT", "10"),
		RateWindow:      getEnv("RATE_WINDOW", "1m"),
		RateAlgorithm:   getEnv("RATE_ALGORITHM", "fixed-window"),
		RatePrefix:      getEnv("RATE_PREFIX", "rl"),
		RateSkipHeaders: getBoolEnv("RATE_SKIP_HEADERS", false),

		// Request identification
		KeyStrategy: getEnv("KEY_STRATEGY", KeyStrategyIP),
		JWTSecret:   getEnv("JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable value or returns a default value
// if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a
// default value.
//
// This function accepts common boolean representations:
//   - "true", "1", "t", "TRUE", "True" -> true
//   - "false", "0", "f", "FALSE", "False" -> false
//   - Any other value or parsing error -> returns defaultValue
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate performs comprehensive validation on the configuration to ensure
// all required fields are present and all values are valid.
//
// This method checks:
//   - Field format validation (ports, limits, durations)
//   - Cross-field dependencies (backend connection settings, JWT secret)
//   - Value ranges (Redis database number, pool size)
//
// The service should call this method after loading configuration and before
// starting. Values that fail validation are reported, never silently clamped.
func (c *Config) Validate() error {
	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	// Validate storage backend selection
	switch c.StorageType {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
		// Valid backend types
	default:
		return fmt.Errorf("STORAGE_TYPE must be 'memory', 'redis', 'postgres' or 'sqlite'")
	}

	// Validate Redis config if using Redis
	if c.StorageType == StorageRedis {
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when using Redis")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	// Validate PostgreSQL config if using PostgreSQL
	if c.StorageType == StoragePostgres {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	// Validate SQLite config if using SQLite
	if c.StorageType == StorageSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when using SQLite")
	}

	// Validate sweep interval
	if interval, err := utils.ParseWindow(c.CleanupInterval); err != nil || interval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be a valid positive duration (e.g., '30s', '1m')")
	}

	// Validate rate limit config
	if limit, err := strconv.Atoi(c.RateLimit); err != nil || limit < 1 {
		return fmt.Errorf("RATE_LIMIT must be a positive number")
	}
	if window, err := utils.ParseWindow(c.RateWindow); err != nil || window <= 0 {
		return fmt.Errorf("RATE_WINDOW must be a valid positive duration (e.g., '30s', '1m', '1.5m')")
	}
	switch c.RateAlgorithm {
	case "fixed-window", "sliding-window":
		// Valid algorithms
	default:
		return fmt.Errorf("RATE_ALGORITHM must be 'fixed-window' or 'sliding-window'")
	}
	if c.RatePrefix == "" {
		return fmt.Errorf("RATE_PREFIX must not be empty")
	}

	// Validate key strategy
	switch c.KeyStrategy {
	case KeyStrategyIP, KeyStrategyEndpoint, KeyStrategyCombined:
		// Valid strategies
	case KeyStrategyJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when KEY_STRATEGY is 'jwt'")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
		}
	default:
		return fmt.Errorf("KEY_STRATEGY must be 'ip', 'endpoint', 'combined' or 'jwt'")
	}

	return nil
}
