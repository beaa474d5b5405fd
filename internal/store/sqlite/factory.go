package sqlite

import (
	"rate-gate/internal/common/errors"
	"rate-gate/internal/store"
)

type Factory struct{}

func (f *Factory) Create(config store.Config) (store.Store, error) {
	sqliteConfig, ok := config.(*Config)
	if !ok {
		return nil, errors.ValidationError("invalid config type for sqlite store")
	}

	return New(sqliteConfig)
}

func (f *Factory) GetType() string {
	return "sqlite"
}

func init() {
	store.Register("sqlite", &Factory{})
}
