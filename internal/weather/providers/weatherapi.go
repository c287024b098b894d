package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/common"
	"github.com/i474232898/weather-cli/internal/weather"
)

const defaultWeatherAPIURL = "https://api.weatherapi.com/v1"

// weatherAPIEarliest is the first day WeatherAPI.com serves history for.
var weatherAPIEarliest = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	logger  *zap.Logger
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		apiKey:  apiKey,
		baseURL: defaultWeatherAPIURL,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("weatherapi"),
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
	}
}

func (p *WeatherAPIProvider) ID() weather.ProviderID {
	return weather.ProviderWeatherAPI
}

type waLocation struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type waCondition struct {
	Text string `json:"text"`
}

type waCurrentResponse struct {
	Location waLocation `json:"location"`
	Current  *struct {
		LastUpdatedEpoch int64       `json:"last_updated_epoch"`
		TempC            *float64    `json:"temp_c"`
		Humidity         *float64    `json:"humidity"`
		WindKph          float64     `json:"wind_kph"`
		Condition        waCondition `json:"condition"`
	} `json:"current"`
}

type waHistoryResponse struct {
	Location waLocation `json:"location"`
	Forecast struct {
		ForecastDay []struct {
			DateEpoch int64 `json:"date_epoch"`
			Day       struct {
				AvgTempC    *float64    `json:"avgtemp_c"`
				AvgHumidity *float64    `json:"avghumidity"`
				MaxWindKph  float64     `json:"maxwind_kph"`
				Condition   waCondition `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

type waErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, location string, date time.Time) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("%w: 'WeatherApi' API key not set, use: weather provider wa --key <API_KEY>", weather.ErrAuth)
	}
	if location == "" {
		return weather.Report{}, fmt.Errorf("%w: empty location", weather.ErrNotFound)
	}

	if date.IsZero() {
		return p.fetchCurrent(ctx, location)
	}
	return p.fetchHistorical(ctx, location, date)
}

func (p *WeatherAPIProvider) fetchCurrent(ctx context.Context, location string) (weather.Report, error) {
	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", location)
	values.Set("aqi", "no")

	var payload waCurrentResponse
	if err := p.get(ctx, "/current.json", values, &payload); err != nil {
		return weather.Report{}, err
	}

	if payload.Current == nil || payload.Current.TempC == nil {
		return weather.Report{}, fmt.Errorf("%w: weatherapi response has no current.temp_c", weather.ErrNormalization)
	}
	cur := payload.Current

	return weather.Report{
		Location:     waLabel(payload.Location, location),
		Kind:         weather.KindCurrent,
		Timestamp:    unixOrNow(p.clock, cur.LastUpdatedEpoch),
		TemperatureC: *cur.TempC,
		HumidityPct:  cur.Humidity,
		WindSpeedMS:  kphToMS(cur.WindKph),
		Description:  cur.Condition.Text,
		Condition:    mapWeatherAPICondition(cur.Condition.Text),
		Provider:     weather.ProviderWeatherAPI,
	}, nil
}

func (p *WeatherAPIProvider) fetchHistorical(ctx context.Context, location string, date time.Time) (weather.Report, error) {
	if err := checkDateWindow(p.clock, weather.ProviderWeatherAPI, date, weatherAPIEarliest); err != nil {
		return weather.Report{}, err
	}

	day := weather.Day(date)
	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", location)
	values.Set("dt", weather.FormatDate(day))

	var payload waHistoryResponse
	if err := p.get(ctx, "/history.json", values, &payload); err != nil {
		return weather.Report{}, err
	}

	if len(payload.Forecast.ForecastDay) == 0 {
		return weather.Report{}, fmt.Errorf("%w: weatherapi returned no history for %s",
			weather.ErrUnsupportedDate, weather.FormatDate(day))
	}
	fd := payload.Forecast.ForecastDay[0]
	if fd.Day.AvgTempC == nil {
		return weather.Report{}, fmt.Errorf("%w: weatherapi history has no day.avgtemp_c", weather.ErrNormalization)
	}

	ts := day
	if fd.DateEpoch > 0 {
		ts = time.Unix(fd.DateEpoch, 0).UTC()
	}

	return weather.Report{
		Location:     waLabel(payload.Location, location),
		Kind:         weather.KindHistorical,
		Timestamp:    ts,
		TemperatureC: *fd.Day.AvgTempC,
		HumidityPct:  fd.Day.AvgHumidity,
		WindSpeedMS:  kphToMS(fd.Day.MaxWindKph),
		Description:  fd.Day.Condition.Text,
		Condition:    mapWeatherAPICondition(fd.Day.Condition.Text),
		Provider:     weather.ProviderWeatherAPI,
	}, nil
}

func (p *WeatherAPIProvider) get(ctx context.Context, path string, values url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", strings.TrimRight(p.baseURL, "/"), path, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", weather.ErrTransport, err)
	}

	p.logger.Debug("weatherapi request", zap.String("path", path), zap.String("q", values.Get("q")))

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, weather.ProviderWeatherAPI, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return weatherAPIClientError(resp.Body)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	return decodeJSON(resp.Body, out)
}

// weatherAPIClientError classifies WeatherAPI's 400 responses by their error code.
func weatherAPIClientError(body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	var apiErr waErrorResponse
	if err := json.Unmarshal(data, &apiErr); err != nil {
		return fmt.Errorf("%w: HTTP 400", weather.ErrTransport)
	}

	msg := apiErr.Error.Message
	switch apiErr.Error.Code {
	case 1003, 1006:
		return fmt.Errorf("%w: %s", weather.ErrNotFound, msg)
	case 1002, 2006, 2007, 2008, 2009:
		return fmt.Errorf("%w: %s", weather.ErrAuth, msg)
	default:
		return fmt.Errorf("%w: weatherapi error %d: %s", weather.ErrTransport, apiErr.Error.Code, msg)
	}
}

func waLabel(loc waLocation, fallback string) string {
	switch {
	case loc.Name != "" && loc.Country != "":
		return fmt.Sprintf("%s, %s", loc.Name, loc.Country)
	case loc.Name != "":
		return loc.Name
	default:
		return fallback
	}
}

// kphToMS converts km/h to m/s.
func kphToMS(kph float64) float64 {
	return kph / 3.6
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAnyFold(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAnyFold(text, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.HasAnyFold(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAnyFold(text, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAnyFold(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAnyFold(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
