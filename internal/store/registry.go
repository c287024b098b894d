package store

import (
	"fmt"
	"strings"

	"github.com/i474232898/weather-cli/internal/weather"
)

// ProviderRegistry holds the configured providers. At most one entry is the default,
// and a provider only becomes default once it has been configured.
type ProviderRegistry struct {
	providers []weather.ProviderConfig
}

// NewProviderRegistry creates a registry from persisted entries.
func NewProviderRegistry(cfgs []weather.ProviderConfig) *ProviderRegistry {
	return &ProviderRegistry{providers: append([]weather.ProviderConfig(nil), cfgs...)}
}

// List returns a copy of the configured providers in insertion order.
func (r *ProviderRegistry) List() []weather.ProviderConfig {
	return append([]weather.ProviderConfig(nil), r.providers...)
}

// Get returns the stored configuration of id.
func (r *ProviderRegistry) Get(id weather.ProviderID) (weather.ProviderConfig, bool) {
	if i := r.index(id); i >= 0 {
		return r.providers[i], true
	}
	return weather.ProviderConfig{}, false
}

// Default returns the default provider, if any.
func (r *ProviderRegistry) Default() (weather.ProviderConfig, bool) {
	for _, p := range r.providers {
		if p.IsDefault {
			return p, true
		}
	}
	return weather.ProviderConfig{}, false
}

// SetKey stores (or with an empty key, clears) the API key of a provider. The first
// provider configured while no default exists becomes the default; the returned bool
// reports that. Clearing a key leaves the default flag untouched.
func (r *ProviderRegistry) SetKey(name, key string) (bool, error) {
	id, err := weather.ParseProviderID(name)
	if err != nil {
		return false, err
	}
	key = strings.TrimSpace(key)

	i := r.index(id)
	if i < 0 {
		r.providers = append(r.providers, weather.ProviderConfig{ID: id})
		i = len(r.providers) - 1
	}
	r.providers[i].APIKey = key

	if key == "" {
		return false, nil
	}
	if _, ok := r.Default(); !ok {
		r.providers[i].IsDefault = true
		return true, nil
	}
	return false, nil
}

// SetDefault makes id the only default provider. Providers that need a key must have
// one stored first; the mock provider is configured on demand.
func (r *ProviderRegistry) SetDefault(name string) error {
	id, err := weather.ParseProviderID(name)
	if err != nil {
		return err
	}

	i := r.index(id)
	switch {
	case i < 0 && !id.RequiresKey():
		r.providers = append(r.providers, weather.ProviderConfig{ID: id})
		i = len(r.providers) - 1
	case i < 0 || (id.RequiresKey() && !r.providers[i].HasKey()):
		return fmt.Errorf("%w: provider '%s' is not configured, set its key with: weather provider %s --key <API_KEY>",
			weather.ErrUnknownProvider, id.Name(), id)
	}

	for j := range r.providers {
		r.providers[j].IsDefault = j == i
	}
	return nil
}

// Select picks the configuration for a query: the override when given, otherwise the
// default. An override naming a known but unconfigured provider yields a keyless entry,
// which the factory rejects with weather.ErrAuth.
func (r *ProviderRegistry) Select(override string) (weather.ProviderConfig, error) {
	if strings.TrimSpace(override) != "" {
		id, err := weather.ParseProviderID(override)
		if err != nil {
			return weather.ProviderConfig{}, err
		}
		if cfg, ok := r.Get(id); ok {
			return cfg, nil
		}
		return weather.ProviderConfig{ID: id}, nil
	}

	cfg, ok := r.Default()
	if !ok {
		return weather.ProviderConfig{}, fmt.Errorf("%w: set one with: weather provider <ID> --key <API_KEY>", weather.ErrNoDefaultProvider)
	}
	return cfg, nil
}

// Resolve selects a configuration and builds the provider for it.
func (r *ProviderRegistry) Resolve(override string, build weather.ProviderFactory) (weather.Provider, error) {
	cfg, err := r.Select(override)
	if err != nil {
		return nil, err
	}
	return build(cfg)
}

func (r *ProviderRegistry) index(id weather.ProviderID) int {
	for i, p := range r.providers {
		if p.ID == id {
			return i
		}
	}
	return -1
}
