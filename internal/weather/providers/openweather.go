package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/weather"
)

const (
	defaultOpenWeatherURL        = "https://api.openweathermap.org/data/2.5/weather"
	defaultOpenWeatherHistoryURL = "https://history.openweathermap.org/data/2.5/history/city"

	kelvinOffset = 273.15
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
//
// Current conditions come from the 2.5 weather endpoint in metric units. Historical
// queries use the hourly history endpoint, which only speaks Kelvin and goes back one year.
type OpenWeatherProvider struct {
	apiKey     string
	baseURL    string
	historyURL string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	clock      clockwork.Clock
	logger     *zap.Logger
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		apiKey:     apiKey,
		baseURL:    defaultOpenWeatherURL,
		historyURL: defaultOpenWeatherHistoryURL,
		httpCfg:    HTTPClientConfig{Client: client},
		circuit:    newCircuitBreaker("openweather"),
		clock:      clockwork.NewRealClock(),
		logger:     zap.NewNop(),
	}
}

func (p *OpenWeatherProvider) ID() weather.ProviderID {
	return weather.ProviderOpenWeather
}

type owWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owMain struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
}

type owCurrentResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main owMain `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owWeather `json:"weather"`
}

type owHistoryEntry struct {
	Dt   int64  `json:"dt"`
	Main owMain `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owWeather `json:"weather"`
}

type owHistoryResponse struct {
	List []owHistoryEntry `json:"list"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, location string, date time.Time) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("%w: 'OpenWeather' API key not set, use: weather provider ow --key <API_KEY>", weather.ErrAuth)
	}
	if location == "" {
		return weather.Report{}, fmt.Errorf("%w: empty location", weather.ErrNotFound)
	}

	if date.IsZero() {
		return p.fetchCurrent(ctx, location)
	}
	return p.fetchHistorical(ctx, location, date)
}

func (p *OpenWeatherProvider) fetchCurrent(ctx context.Context, location string) (weather.Report, error) {
	values := url.Values{}
	values.Set("q", location)
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	var payload owCurrentResponse
	if err := p.get(ctx, p.baseURL, values, &payload); err != nil {
		return weather.Report{}, err
	}

	if payload.Main.Temp == nil {
		return weather.Report{}, fmt.Errorf("%w: openweather response has no main.temp", weather.ErrNormalization)
	}

	label := location
	if payload.Name != "" {
		label = payload.Name
		if payload.Sys.Country != "" {
			label = fmt.Sprintf("%s, %s", payload.Name, payload.Sys.Country)
		}
	}

	return weather.Report{
		Location:     label,
		Kind:         weather.KindCurrent,
		Timestamp:    unixOrNow(p.clock, payload.Dt),
		TemperatureC: *payload.Main.Temp,
		HumidityPct:  payload.Main.Humidity,
		WindSpeedMS:  payload.Wind.Speed,
		Description:  describeOpenWeather(payload.Weather),
		Condition:    mapOpenWeatherCondition(payload.Weather),
		Provider:     weather.ProviderOpenWeather,
	}, nil
}

func (p *OpenWeatherProvider) fetchHistorical(ctx context.Context, location string, date time.Time) (weather.Report, error) {
	earliest := weather.Day(p.clock.Now()).AddDate(-1, 0, 0)
	if err := checkDateWindow(p.clock, weather.ProviderOpenWeather, date, earliest); err != nil {
		return weather.Report{}, err
	}

	start := weather.Day(date)
	end := start.Add(24*time.Hour - time.Second)

	values := url.Values{}
	values.Set("q", location)
	values.Set("type", "hour")
	values.Set("start", strconv.FormatInt(start.Unix(), 10))
	values.Set("end", strconv.FormatInt(end.Unix(), 10))
	values.Set("appid", p.apiKey)

	var payload owHistoryResponse
	if err := p.get(ctx, p.historyURL, values, &payload); err != nil {
		return weather.Report{}, err
	}

	if len(payload.List) == 0 {
		return weather.Report{}, fmt.Errorf("%w: openweather returned no observations for %s",
			weather.ErrUnsupportedDate, weather.FormatDate(start))
	}

	entry := closestToNoon(payload.List, start)
	if entry.Main.Temp == nil {
		return weather.Report{}, fmt.Errorf("%w: openweather history entry has no main.temp", weather.ErrNormalization)
	}

	ts := time.Unix(entry.Dt, 0).UTC()
	if entry.Dt <= 0 {
		ts = start.Add(12 * time.Hour)
	}

	return weather.Report{
		Location:     location,
		Kind:         weather.KindHistorical,
		Timestamp:    ts,
		TemperatureC: *entry.Main.Temp - kelvinOffset,
		HumidityPct:  entry.Main.Humidity,
		WindSpeedMS:  entry.Wind.Speed,
		Description:  describeOpenWeather(entry.Weather),
		Condition:    mapOpenWeatherCondition(entry.Weather),
		Provider:     weather.ProviderOpenWeather,
	}, nil
}

func (p *OpenWeatherProvider) get(ctx context.Context, endpoint string, values url.Values, out any) error {
	u := fmt.Sprintf("%s?%s", endpoint, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", weather.ErrTransport, err)
	}

	p.logger.Debug("openweather request", zap.String("endpoint", endpoint), zap.String("q", values.Get("q")))

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, weather.ProviderOpenWeather, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return decodeJSON(resp.Body, out)
}

// closestToNoon picks the hourly observation nearest to 12:00 UTC of day.
func closestToNoon(entries []owHistoryEntry, day time.Time) owHistoryEntry {
	noon := day.Add(12 * time.Hour).Unix()
	best := entries[0]
	bestDist := int64(math.MaxInt64)
	for _, e := range entries {
		dist := e.Dt - noon
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = e, dist
		}
	}
	return best
}

func describeOpenWeather(items []owWeather) string {
	if len(items) == 0 {
		return ""
	}
	if items[0].Description != "" {
		return items[0].Description
	}
	return items[0].Main
}

func mapOpenWeatherCondition(items []owWeather) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm", "Squall", "Tornado":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
