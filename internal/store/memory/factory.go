package memory

import (
	"fmt"

	"rate-gate/internal/store"
)

type Factory struct{}

func (f *Factory) Create(config store.Config) (store.Store, error) {
	memConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for memory store")
	}

	if err := memConfig.Validate(); err != nil {
		return nil, err
	}

	return New(memConfig), nil
}

func (f *Factory) GetType() string {
	return "memory"
}

func init() {
	store.Register("memory", &Factory{})
}
