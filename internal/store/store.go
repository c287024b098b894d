package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/observability"
	"github.com/i474232898/weather-cli/internal/weather"
)

// ConfigStore owns the provider registry and the alias store and persists both through
// a Backend after every successful mutation. A mutation that fails, either in its own
// logic or while saving, leaves the in-memory state unchanged.
type ConfigStore struct {
	mu sync.RWMutex

	backend   Backend
	providers *ProviderRegistry
	aliases   *AliasStore
	logger    *zap.Logger
}

// Open loads settings from backend. A backend with nothing stored yields empty state;
// unreadable or invalid settings are an error.
func Open(ctx context.Context, backend Backend, logger *zap.Logger) (*ConfigStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSettings):
		logger.Debug("no stored settings, starting empty")
		settings = Settings{}
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = settings.Canonical()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &ConfigStore{
		backend:   backend,
		providers: NewProviderRegistry(settings.Providers),
		aliases:   NewAliasStore(settings.Aliases),
		logger:    logger,
	}, nil
}

// snapshot returns a copy of the current settings.
func (s *ConfigStore) snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// View runs fn with read access to both stores. fn must not mutate them.
func (s *ConfigStore) View(fn func(providers *ProviderRegistry, aliases *AliasStore) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.providers, s.aliases)
}

// Update runs fn with write access and persists the result. On any error the previous
// state is restored.
func (s *ConfigStore) Update(ctx context.Context, fn func(providers *ProviderRegistry, aliases *AliasStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshotLocked()
	if err := fn(s.providers, s.aliases); err != nil {
		s.restoreLocked(before)
		return err
	}

	err := s.backend.Save(ctx, s.snapshotLocked())
	observability.RecordConfigSave(err)
	if err != nil {
		s.restoreLocked(before)
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SeedKeys stores keys for providers that have none yet. Providers already carrying a
// key are left alone. Nothing is saved when no key applies.
func (s *ConfigStore) SeedKeys(ctx context.Context, keys map[weather.ProviderID]string) error {
	pending := make(map[weather.ProviderID]string)
	_ = s.View(func(providers *ProviderRegistry, _ *AliasStore) error {
		for id, key := range keys {
			if key == "" {
				continue
			}
			if cfg, ok := providers.Get(id); ok && cfg.HasKey() {
				continue
			}
			pending[id] = key
		}
		return nil
	})
	if len(pending) == 0 {
		return nil
	}

	return s.Update(ctx, func(providers *ProviderRegistry, _ *AliasStore) error {
		// Deterministic order so the first seeded provider is stable.
		for _, id := range weather.KnownProviders() {
			key, ok := pending[id]
			if !ok {
				continue
			}
			if _, err := providers.SetKey(string(id), key); err != nil {
				return err
			}
			s.logger.Debug("seeded provider key from environment", zap.String("provider", string(id)))
		}
		return nil
	})
}

// SetProviderKey stores a provider key and reports whether the provider became default.
func (s *ConfigStore) SetProviderKey(ctx context.Context, id, key string) (bool, error) {
	var becameDefault bool
	err := s.Update(ctx, func(providers *ProviderRegistry, _ *AliasStore) error {
		var err error
		becameDefault, err = providers.SetKey(id, key)
		return err
	})
	return becameDefault, err
}

// SetDefaultProvider makes id the default provider.
func (s *ConfigStore) SetDefaultProvider(ctx context.Context, id string) error {
	return s.Update(ctx, func(providers *ProviderRegistry, _ *AliasStore) error {
		return providers.SetDefault(id)
	})
}

// SetAlias creates or updates an alias and reports whether it became default.
func (s *ConfigStore) SetAlias(ctx context.Context, name, address string) (bool, error) {
	var becameDefault bool
	err := s.Update(ctx, func(_ *ProviderRegistry, aliases *AliasStore) error {
		var err error
		becameDefault, err = aliases.Set(name, address)
		return err
	})
	return becameDefault, err
}

// SetDefaultAlias makes name the default alias.
func (s *ConfigStore) SetDefaultAlias(ctx context.Context, name string) error {
	return s.Update(ctx, func(_ *ProviderRegistry, aliases *AliasStore) error {
		return aliases.SetDefault(name)
	})
}

// RemoveAlias deletes an alias and reports whether it was the default.
func (s *ConfigStore) RemoveAlias(ctx context.Context, name string) (bool, error) {
	var wasDefault bool
	err := s.Update(ctx, func(_ *ProviderRegistry, aliases *AliasStore) error {
		var err error
		wasDefault, err = aliases.Remove(name)
		return err
	})
	return wasDefault, err
}

// Providers lists the configured providers.
func (s *ConfigStore) Providers() []weather.ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers.List()
}

// Aliases lists the stored aliases.
func (s *ConfigStore) Aliases() []weather.Alias {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliases.List()
}

// ResolveAlias satisfies weather.AliasResolver.
func (s *ConfigStore) ResolveAlias(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aliases.Resolve(token)
}

// ResolveProvider satisfies weather.ProviderSelector. The provider is built outside
// the lock.
func (s *ConfigStore) ResolveProvider(override string, build weather.ProviderFactory) (weather.Provider, error) {
	s.mu.RLock()
	cfg, err := s.providers.Select(override)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return build(cfg)
}

// Close releases the backend.
func (s *ConfigStore) Close() error {
	return s.backend.Close()
}

func (s *ConfigStore) snapshotLocked() Settings {
	return Settings{
		Providers: s.providers.List(),
		Aliases:   s.aliases.List(),
	}
}

func (s *ConfigStore) restoreLocked(settings Settings) {
	s.providers = NewProviderRegistry(settings.Providers)
	s.aliases = NewAliasStore(settings.Aliases)
}
