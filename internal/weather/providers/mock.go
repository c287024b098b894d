package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-cli/internal/weather"
)

// MockProvider is an offline provider returning canned reports. Current and historical
// queries get different canned values so callers can tell which path ran.
type MockProvider struct {
	clock clockwork.Clock
}

func NewMockProvider(clock clockwork.Clock) *MockProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MockProvider{clock: clock}
}

func (p *MockProvider) ID() weather.ProviderID {
	return weather.ProviderMock
}

func (p *MockProvider) Fetch(_ context.Context, location string, date time.Time) (weather.Report, error) {
	if location == "" {
		return weather.Report{}, fmt.Errorf("%w: empty location", weather.ErrNotFound)
	}

	if date.IsZero() {
		return weather.Report{
			Location:     location,
			Kind:         weather.KindCurrent,
			Timestamp:    p.clock.Now().UTC(),
			TemperatureC: 20.0,
			HumidityPct:  weather.Percent(50),
			WindSpeedMS:  3.5,
			Description:  "Sunny (Mock)",
			Condition:    weather.ConditionClear,
			Provider:     weather.ProviderMock,
		}, nil
	}

	return weather.Report{
		Location:     location,
		Kind:         weather.KindHistorical,
		Timestamp:    weather.Day(date).Add(12 * time.Hour),
		TemperatureC: 12.5,
		HumidityPct:  weather.Percent(70),
		WindSpeedMS:  5.0,
		Description:  "Overcast (Mock)",
		Condition:    weather.ConditionCloudy,
		Provider:     weather.ProviderMock,
	}, nil
}
