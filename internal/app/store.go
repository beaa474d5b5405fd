package app

import (
	"fmt"
	"strconv"

	"rate-gate/internal/circuitbreaker"
	"rate-gate/internal/common/logging"
	"rate-gate/internal/common/utils"
	"rate-gate/internal/config"
	"rate-gate/internal/store"
	"rate-gate/internal/store/memory"
	"rate-gate/internal/store/postgres"
	"rate-gate/internal/store/redis"
	"rate-gate/internal/store/sqlite"
)

func (app *App) initializeStore() error {
	// Conversions were checked by config.Validate.
	sweep, _ := utils.ParseWindow(app.Config.CleanupInterval)

	var storeConfig store.Config

	switch app.Config.StorageType {
	case config.StorageRedis:
		redisDB, _ := strconv.Atoi(app.Config.RedisDB)
		poolSize, _ := strconv.Atoi(app.Config.RedisPoolSize)
		app.Logger.Info("Counter store: Redis",
			logging.Field{Key: "address", Value: app.Config.RedisAddress},
			logging.Field{Key: "db", Value: redisDB},
		)
		storeConfig = &redis.Config{
			Address:  app.Config.RedisAddress,
			Password: app.Config.RedisPassword,
			DB:       redisDB,
			PoolSize: poolSize,
		}
	case config.StoragePostgres:
		port, _ := strconv.Atoi(app.Config.PostgresPort)
		app.Logger.Info("Counter store: PostgreSQL",
			logging.Field{Key: "host", Value: app.Config.PostgresHost},
			logging.Field{Key: "port", Value: app.Config.PostgresPort},
			logging.Field{Key: "database", Value: app.Config.PostgresDB},
		)
		storeConfig = &postgres.Config{
			Host:          app.Config.PostgresHost,
			Port:          port,
			Database:      app.Config.PostgresDB,
			Username:      app.Config.PostgresUser,
			Password:      app.Config.PostgresPassword,
			SSLMode:       app.Config.PostgresSSLMode,
			SweepInterval: sweep,
		}
	case config.StorageSQLite:
		app.Logger.Info("Counter store: SQLite",
			logging.Field{Key: "path", Value: app.Config.SQLitePath})
		storeConfig = &sqlite.Config{
			DatabasePath:  app.Config.SQLitePath,
			SweepInterval: sweep,
		}
	default:
		app.Logger.Info("Counter store: in-memory")
		storeConfig = &memory.Config{CleanupInterval: sweep}
	}

	s, err := store.Create(app.Config.StorageType, storeConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize counter store: %w", err)
	}

	// Network backends sit behind a circuit breaker so a dead backend
	// fails fast instead of stalling every request on its timeout.
	switch app.Config.StorageType {
	case config.StorageRedis, config.StoragePostgres:
		breaker := circuitbreaker.New(app.Config.StorageType+"-store", circuitbreaker.DefaultConfig(), app.Logger)
		s = store.NewGuard(s, breaker)
	}

	app.Store = s
	return nil
}
