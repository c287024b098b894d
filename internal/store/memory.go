package store

import (
	"context"
	"sync"

	"github.com/i474232898/weather-cli/internal/weather"
)

// MemoryBackend is a concurrency-safe in-memory Backend.
type MemoryBackend struct {
	mu sync.RWMutex

	settings *Settings
	saves    int
}

// NewMemoryBackend creates a MemoryBackend. Passing nil starts with nothing stored.
func NewMemoryBackend(initial *Settings) *MemoryBackend {
	b := &MemoryBackend{}
	if initial != nil {
		s := cloneSettings(*initial)
		b.settings = &s
	}
	return b
}

// Load returns a copy of the stored settings or ErrNoSettings.
func (b *MemoryBackend) Load(_ context.Context) (Settings, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.settings == nil {
		return Settings{}, ErrNoSettings
	}
	return cloneSettings(*b.settings), nil
}

// Save replaces the stored settings.
func (b *MemoryBackend) Save(_ context.Context, s Settings) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := cloneSettings(s)
	b.settings = &c
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

func (b *MemoryBackend) Close() error {
	return nil
}

func cloneSettings(s Settings) Settings {
	out := Settings{}
	if s.Providers != nil {
		out.Providers = append([]weather.ProviderConfig(nil), s.Providers...)
	}
	if s.Aliases != nil {
		out.Aliases = append([]weather.Alias(nil), s.Aliases...)
	}
	return out
}
