package postgres

import (
	"rate-gate/internal/common/errors"
	"rate-gate/internal/store"
)

type Factory struct{}

func (f *Factory) Create(config store.Config) (store.Store, error) {
	pgConfig, ok := config.(*Config)
	if !ok {
		return nil, errors.ValidationError("invalid config type for postgres store")
	}

	return New(pgConfig)
}

func (f *Factory) GetType() string {
	return "postgres"
}

func init() {
	store.Register("postgres", &Factory{})
}
