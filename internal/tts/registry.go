package tts

import (
	"errors"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered.
	ErrProviderNotFound = errors.New("TTS provider not found")
	// ErrProviderExists is returned when trying to register a duplicate provider.
	ErrProviderExists = errors.New("TTS provider already registered")
)

// Registry manages available TTS providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	def       string
}

// NewRegistry creates a new TTS provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return ErrProviderExists
	}

	r.providers[name] = provider
	r.order = append(r.order, name)

	// Set as default if first provider
	if r.def == "" {
		r.def = name
	}

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, ErrProviderNotFound
	}

	return provider, nil
}

// Default returns the default provider.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrProviderNotFound
	}

	return r.providers[r.def], nil
}

// SetDefault sets the default provider by name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return ErrProviderNotFound
	}

	r.def = name
	return nil
}

// List returns all registered providers in registration order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		providers = append(providers, r.providers[name])
	}
	return providers
}
