package app

import (
	"rate-gate/internal/common/logging"
	"rate-gate/internal/config"
	"rate-gate/internal/limiter"
	"rate-gate/internal/store"
)

// App holds all the application dependencies
type App struct {
	Config  *config.Config
	Store   store.Store
	Limiter *limiter.Limiter
	Logger  logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	// Initialize components in order of dependency
	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	if err := app.initializeLimiter(); err != nil {
		_ = app.Store.Close()
		return nil, err
	}

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Limiter != nil {
		// Closing the limiter closes the store behind it.
		if err := app.Limiter.Close(); err != nil {
			app.Logger.Warn("Error closing limiter", logging.Field{Key: "error", Value: err.Error()})
		}
		return
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("Error closing counter store", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
