package weather

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderID is the canonical short key of a provider ("ow", "wa", "mock").
type ProviderID string

const (
	ProviderOpenWeather ProviderID = "ow"
	ProviderWeatherAPI  ProviderID = "wa"
	ProviderMock        ProviderID = "mock"
)

// KnownProviders lists every provider the application can talk to, in display order.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderMock, ProviderOpenWeather, ProviderWeatherAPI}
}

// Name returns the human readable provider name.
func (id ProviderID) Name() string {
	switch id {
	case ProviderOpenWeather:
		return "OpenWeather"
	case ProviderWeatherAPI:
		return "WeatherApi"
	case ProviderMock:
		return "MockWeather"
	default:
		return string(id)
	}
}

// RequiresKey reports whether the provider needs an API key before it can be called.
func (id ProviderID) RequiresKey() bool {
	return id != ProviderMock
}

// ParseProviderID accepts either the short id or the provider name, case-insensitively.
func ParseProviderID(s string) (ProviderID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ow", "openweather":
		return ProviderOpenWeather, nil
	case "wa", "weatherapi":
		return ProviderWeatherAPI, nil
	case "mock", "mockweather":
		return ProviderMock, nil
	}

	known := make([]string, 0, len(KnownProviders()))
	for _, id := range KnownProviders() {
		known = append(known, fmt.Sprintf("'%s' (%s)", id.Name(), id))
	}
	return "", fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, s, strings.Join(known, ", "))
}

// ProviderConfig is the persisted configuration of one provider.
type ProviderConfig struct {
	ID        ProviderID `yaml:"id" json:"id"`
	APIKey    string     `yaml:"api_key,omitempty" json:"-"`
	IsDefault bool       `yaml:"default,omitempty" json:"default"`
}

// HasKey reports whether an API key is stored.
func (c ProviderConfig) HasKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Alias maps a short user-defined name to a location address.
type Alias struct {
	Name      string `yaml:"name" json:"name" validate:"required,max=32,nowhitespace"`
	Address   string `yaml:"address" json:"address" validate:"required"`
	IsDefault bool   `yaml:"default,omitempty" json:"default"`
}

// Provider abstracts a weather data source (OpenWeather, WeatherAPI, the offline mock).
//
// A zero date asks for current conditions; any other date is routed to the provider's
// historical endpoint. Implementations perform exactly one outbound call and never retry.
type Provider interface {
	ID() ProviderID
	Fetch(ctx context.Context, location string, date time.Time) (Report, error)
}

// ProviderFactory builds a ready-to-call Provider from its stored configuration.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)
