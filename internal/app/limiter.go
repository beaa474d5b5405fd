package app

import (
	"strconv"

	"rate-gate/internal/common/logging"
	"rate-gate/internal/common/utils"
	"rate-gate/internal/config"
	"rate-gate/internal/limiter"
)

func (app *App) initializeLimiter() error {
	limit, _ := strconv.Atoi(app.Config.RateLimit)
	window, _ := utils.ParseWindow(app.Config.RateWindow)

	l, err := limiter.New(&limiter.Config{
		Limit:       limit,
		Window:      window,
		Algorithm:   app.Config.RateAlgorithm,
		Prefix:      app.Config.RatePrefix,
		Store:       app.Store,
		KeyFunc:     app.keyFunc(),
		SkipHeaders: app.Config.RateSkipHeaders,
	})
	if err != nil {
		return err
	}

	app.Limiter = l
	app.Logger.Info("Rate limiting configured",
		logging.Field{Key: "limit", Value: limit},
		logging.Field{Key: "window", Value: utils.FormatDuration(window)},
		logging.Field{Key: "algorithm", Value: app.Config.RateAlgorithm},
		logging.Field{Key: "key_strategy", Value: app.Config.KeyStrategy},
	)
	return nil
}

// keyFunc maps the configured key strategy onto a limiter KeyFunc.
func (app *App) keyFunc() limiter.KeyFunc {
	switch app.Config.KeyStrategy {
	case config.KeyStrategyEndpoint:
		return limiter.EndpointKey
	case config.KeyStrategyCombined:
		return limiter.CombinedKey
	case config.KeyStrategyJWT:
		// Requests without a valid token fall back to per-IP counting.
		return limiter.JWTSubjectKey(app.Config.JWTSecret, limiter.IPKey)
	default:
		return limiter.IPKey
	}
}
