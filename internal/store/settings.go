package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/i474232898/weather-cli/internal/weather"
)

var (
	// ErrNoSettings is returned by a Backend that has never been saved to.
	ErrNoSettings = errors.New("no settings stored")

	// ErrInvalidSettings is returned when persisted settings break a store invariant.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings is the persisted form of the provider registry and the alias store.
// Slices keep insertion order across save/load.
type Settings struct {
	Providers []weather.ProviderConfig `yaml:"providers"`
	Aliases   []weather.Alias          `yaml:"aliases"`
}

// Validate checks the invariants both stores rely on: known, unique provider ids,
// unique alias names and at most one default on each side.
func (s Settings) Validate() error {
	seenProviders := make(map[weather.ProviderID]bool, len(s.Providers))
	defaults := 0
	for _, p := range s.Providers {
		id, err := weather.ParseProviderID(string(p.ID))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		if id != p.ID {
			return fmt.Errorf("%w: provider id %q is not canonical, use %q", ErrInvalidSettings, p.ID, id)
		}
		if seenProviders[p.ID] {
			return fmt.Errorf("%w: provider %q listed twice", ErrInvalidSettings, p.ID)
		}
		seenProviders[p.ID] = true
		if p.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: %d default providers", ErrInvalidSettings, defaults)
	}

	seenAliases := make(map[string]bool, len(s.Aliases))
	defaults = 0
	for _, a := range s.Aliases {
		key := strings.ToLower(a.Name)
		if key == "" {
			return fmt.Errorf("%w: alias with empty name", ErrInvalidSettings)
		}
		if seenAliases[key] {
			return fmt.Errorf("%w: alias %q listed twice", ErrInvalidSettings, a.Name)
		}
		seenAliases[key] = true
		if a.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: %d default aliases", ErrInvalidSettings, defaults)
	}
	return nil
}

// Canonical returns a copy with provider ids rewritten to their short form, so a file
// holding "openweather" loads as "ow". Unknown ids are left for Validate to reject.
func (s Settings) Canonical() Settings {
	out := cloneSettings(s)
	for i, p := range out.Providers {
		if id, err := weather.ParseProviderID(string(p.ID)); err == nil {
			out.Providers[i].ID = id
		}
	}
	return out
}

// Backend persists Settings.
type Backend interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Close() error
}

// OpenBackend picks the backend from the file extension: .db, .sqlite and .sqlite3 use
// SQLite, anything else a YAML file.
func OpenBackend(path string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteBackend(path)
	default:
		return NewFileBackend(path), nil
	}
}
