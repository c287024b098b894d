package providers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/weather"
)

// Endpoints overrides provider base URLs. Empty fields keep the public defaults.
type Endpoints struct {
	OpenWeather        string
	OpenWeatherHistory string
	WeatherAPI         string
}

// Factory builds providers from stored configuration. Circuit breakers are kept per
// provider so long-running modes share breaker state across queries.
type Factory struct {
	httpCfg   HTTPClientConfig
	clock     clockwork.Clock
	endpoints Endpoints
	logger    *zap.Logger

	mu       sync.Mutex
	breakers map[weather.ProviderID]*gobreaker.CircuitBreaker
}

// NewFactory creates a Factory. A nil clock means the real clock.
func NewFactory(httpCfg HTTPClientConfig, clock clockwork.Clock, endpoints Endpoints, logger *zap.Logger) *Factory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpCfg.Client == nil {
		httpCfg.Client = http.DefaultClient
	}
	return &Factory{
		httpCfg:   httpCfg,
		clock:     clock,
		endpoints: endpoints,
		logger:    logger,
		breakers:  make(map[weather.ProviderID]*gobreaker.CircuitBreaker),
	}
}

// Build satisfies weather.ProviderFactory.
func (f *Factory) Build(cfg weather.ProviderConfig) (weather.Provider, error) {
	if cfg.ID.RequiresKey() && !cfg.HasKey() {
		return nil, fmt.Errorf("%w: API key not found for provider '%s', set it with: weather provider %s --key <API_KEY>",
			weather.ErrAuth, cfg.ID.Name(), cfg.ID)
	}

	switch cfg.ID {
	case weather.ProviderMock:
		return NewMockProvider(f.clock), nil

	case weather.ProviderOpenWeather:
		p := NewOpenWeatherProvider(f.httpCfg.Client, cfg.APIKey)
		p.httpCfg = f.httpCfg
		p.circuit = f.breaker(cfg.ID)
		p.clock = f.clock
		p.logger = f.logger.Named("openweather")
		if f.endpoints.OpenWeather != "" {
			p.baseURL = f.endpoints.OpenWeather
		}
		if f.endpoints.OpenWeatherHistory != "" {
			p.historyURL = f.endpoints.OpenWeatherHistory
		}
		return p, nil

	case weather.ProviderWeatherAPI:
		p := NewWeatherAPIProvider(f.httpCfg.Client, cfg.APIKey)
		p.httpCfg = f.httpCfg
		p.circuit = f.breaker(cfg.ID)
		p.clock = f.clock
		p.logger = f.logger.Named("weatherapi")
		if f.endpoints.WeatherAPI != "" {
			p.baseURL = f.endpoints.WeatherAPI
		}
		return p, nil
	}

	return nil, fmt.Errorf("%w: %q", weather.ErrUnknownProvider, cfg.ID)
}

func (f *Factory) breaker(id weather.ProviderID) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[id]
	if !ok {
		cb = newCircuitBreaker(string(id))
		f.breakers[id] = cb
	}
	return cb
}
