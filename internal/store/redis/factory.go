package redis

import (
	"rate-gate/internal/common/errors"
	"rate-gate/internal/store"
)

type Factory struct{}

func (f *Factory) Create(config store.Config) (store.Store, error) {
	redisConfig, ok := config.(*Config)
	if !ok {
		return nil, errors.ValidationError("invalid config type for redis store")
	}

	if err := redisConfig.Validate(); err != nil {
		return nil, err
	}

	return New(redisConfig)
}

func (f *Factory) GetType() string {
	return "redis"
}

func init() {
	store.Register("redis", &Factory{})
}
