package oauth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownProvider is returned when a caller asks for a provider name that
// was never registered.
var ErrUnknownProvider = errors.New("oauth: unknown provider")

// Factory builds a configured Provider. Construction validates the config,
// so a failing factory is a startup-time configuration error.
type Factory func() (Provider, error)

// Registry maps provider names to factories. Registration happens once at
// process start; lookups are read-mostly after that. Adding a provider never
// touches the flow endpoints or the reconciliation service.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.instances, name)
}

// Create returns the Provider registered under name, building it on first
// use. Returns ErrUnknownProvider for unregistered names.
func (r *Registry) Create(name string) (Provider, error) {
	r.mu.RLock()
	if p, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.instances[name]; ok {
		return p, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("oauth: create provider %s: %w", name, err)
	}
	r.instances[name] = p
	return p, nil
}

// IsSupported reports whether name has a registered factory.
func (r *Registry) IsSupported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Supported returns the registered provider names, sorted.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
