package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"rate-gate/internal/common/errors"
)

// Config is implemented by each backend's configuration type.
type Config interface {
	Validate() error
	GetType() string
}

// Factory builds a Store from its backend-specific configuration.
type Factory interface {
	Create(config Config) (Store, error)
	GetType() string
}

type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(storeType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[storeType] = factory
}

func (r *Registry) Create(storeType string, config Config) (Store, error) {
	r.mu.RLock()
	factory, exists := r.factories[storeType]
	r.mu.RUnlock()

	if !exists {
		available := r.GetAvailableTypes()
		sort.Strings(available)
		return nil, errors.ValidationError(fmt.Sprintf(
			"store type %s not registered (available: %s)",
			storeType, strings.Join(available, ", ")))
	}

	return factory.Create(config)
}

func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for storeType := range r.factories {
		types = append(types, storeType)
	}
	return types
}

func (r *Registry) IsRegistered(storeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[storeType]
	return exists
}

var DefaultRegistry = NewRegistry()

func Register(storeType string, factory Factory) {
	DefaultRegistry.Register(storeType, factory)
}

func Create(storeType string, config Config) (Store, error) {
	return DefaultRegistry.Create(storeType, config)
}

func GetAvailableTypes() []string {
	return DefaultRegistry.GetAvailableTypes()
}
