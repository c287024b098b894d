package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-cli/internal/weather"
)

var testNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

func newTestFactory(t *testing.T, handler http.HandlerFunc) *Factory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewFactory(
		HTTPClientConfig{Client: srv.Client(), UserAgent: "weather-test"},
		clockwork.NewFakeClockAt(testNow),
		Endpoints{
			OpenWeather:        srv.URL + "/data/2.5/weather",
			OpenWeatherHistory: srv.URL + "/data/2.5/history/city",
			WeatherAPI:         srv.URL + "/v1",
		},
		nil,
	)
}

func build(t *testing.T, f *Factory, id weather.ProviderID) weather.Provider {
	t.Helper()
	p, err := f.Build(weather.ProviderConfig{ID: id, APIKey: "test-key"})
	require.NoError(t, err)
	return p
}

func TestFactory_Build(t *testing.T) {
	f := NewFactory(HTTPClientConfig{}, clockwork.NewFakeClockAt(testNow), Endpoints{}, nil)

	_, err := f.Build(weather.ProviderConfig{ID: weather.ProviderOpenWeather})
	require.ErrorIs(t, err, weather.ErrAuth)

	_, err = f.Build(weather.ProviderConfig{ID: "darksky", APIKey: "k"})
	require.ErrorIs(t, err, weather.ErrUnknownProvider)

	p, err := f.Build(weather.ProviderConfig{ID: weather.ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, weather.ProviderMock, p.ID())

	a, err := f.Build(weather.ProviderConfig{ID: weather.ProviderWeatherAPI, APIKey: "k"})
	require.NoError(t, err)
	b, err := f.Build(weather.ProviderConfig{ID: weather.ProviderWeatherAPI, APIKey: "k"})
	require.NoError(t, err)
	assert.Same(t, a.(*WeatherAPIProvider).circuit, b.(*WeatherAPIProvider).circuit)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider(clockwork.NewFakeClockAt(testNow))
	ctx := context.Background()

	cur, err := p.Fetch(ctx, "London, UK", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "London, UK", cur.Location)
	assert.Equal(t, weather.KindCurrent, cur.Kind)
	assert.Equal(t, testNow, cur.Timestamp)
	assert.Equal(t, 20.0, cur.TemperatureC)
	assert.Equal(t, weather.ProviderMock, cur.Provider)

	date := time.Date(1999, time.March, 3, 0, 0, 0, 0, time.UTC)
	hist, err := p.Fetch(ctx, "London, UK", date)
	require.NoError(t, err)
	assert.Equal(t, weather.KindHistorical, hist.Kind)
	assert.Equal(t, date.Add(12*time.Hour), hist.Timestamp)
	assert.NotEqual(t, cur.TemperatureC, hist.TemperatureC)

	_, err = p.Fetch(ctx, "", time.Time{})
	require.ErrorIs(t, err, weather.ErrNotFound)
}

func TestOpenWeather_Current(t *testing.T) {
	var gotQuery, gotRequestID string
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "London", "dt": 1718443800, "sys": {"country": "GB"},
			"main": {"temp": 17.4, "humidity": 81},
			"wind": {"speed": 4.1},
			"weather": [{"main": "Clouds", "description": "broken clouds"}]
		}`))
	})
	p := build(t, f, weather.ProviderOpenWeather)

	ctx := weather.WithRequestID(context.Background(), "req-1")
	r, err := p.Fetch(ctx, "London", time.Time{})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "units=metric")
	assert.Contains(t, gotQuery, "appid=test-key")
	assert.Equal(t, "req-1", gotRequestID)

	assert.Equal(t, "London, GB", r.Location)
	assert.Equal(t, weather.KindCurrent, r.Kind)
	assert.Equal(t, 17.4, r.TemperatureC)
	h, ok := r.Humidity()
	require.True(t, ok)
	assert.Equal(t, 81.0, h)
	assert.Equal(t, 4.1, r.WindSpeedMS)
	assert.Equal(t, "broken clouds", r.Description)
	assert.Equal(t, weather.ConditionCloudy, r.Condition)
	assert.Equal(t, time.Unix(1718443800, 0).UTC(), r.Timestamp)
}

func TestOpenWeather_Historical(t *testing.T) {
	date := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	noon := date.Add(12 * time.Hour).Unix()

	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/history/city", r.URL.Path)
		assert.Equal(t, "hour", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"list": [
			{"dt": ` + itoa(noon-3*3600) + `, "main": {"temp": 280.15}, "weather": [{"main": "Rain", "description": "light rain"}]},
			{"dt": ` + itoa(noon) + `, "main": {"temp": 288.15, "humidity": 60}, "wind": {"speed": 2}, "weather": [{"main": "Clear", "description": "clear sky"}]}
		]}`))
	})
	p := build(t, f, weather.ProviderOpenWeather)

	r, err := p.Fetch(context.Background(), "London", date)
	require.NoError(t, err)
	assert.Equal(t, weather.KindHistorical, r.Kind)
	assert.InDelta(t, 15.0, r.TemperatureC, 0.001)
	assert.Equal(t, weather.ConditionClear, r.Condition)
	assert.Equal(t, time.Unix(noon, 0).UTC(), r.Timestamp)
}

func TestOpenWeather_DateWindow(t *testing.T) {
	calls := 0
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	p := build(t, f, weather.ProviderOpenWeather)
	ctx := context.Background()

	_, err := p.Fetch(ctx, "London", testNow.AddDate(0, 0, 1))
	require.ErrorIs(t, err, weather.ErrUnsupportedDate)

	_, err = p.Fetch(ctx, "London", testNow.AddDate(-2, 0, 0))
	require.ErrorIs(t, err, weather.ErrUnsupportedDate)

	assert.Equal(t, 0, calls)
}

func TestOpenWeather_EmptyHistory(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"list": []}`))
	})
	p := build(t, f, weather.ProviderOpenWeather)

	_, err := p.Fetch(context.Background(), "London", testNow.AddDate(0, -1, 0))
	require.ErrorIs(t, err, weather.ErrUnsupportedDate)
}

func TestOpenWeather_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"cod":401}`, weather.ErrAuth},
		{http.StatusNotFound, `{"cod":"404","message":"city not found"}`, weather.ErrNotFound},
		{http.StatusInternalServerError, ``, weather.ErrTransport},
		{http.StatusTooManyRequests, ``, weather.ErrTransport},
		{http.StatusOK, `not json`, weather.ErrNormalization},
		{http.StatusOK, `{"name": "London", "main": {}}`, weather.ErrNormalization},
	}

	for _, c := range cases {
		t.Run(http.StatusText(c.status)+" "+c.body, func(t *testing.T) {
			f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				_, _ = w.Write([]byte(c.body))
			})
			p := build(t, f, weather.ProviderOpenWeather)

			_, err := p.Fetch(context.Background(), "London", time.Time{})
			require.ErrorIs(t, err, c.want)
		})
	}
}

func TestOpenWeather_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewFactory(HTTPClientConfig{Client: &http.Client{Timeout: time.Second}}, nil, Endpoints{OpenWeather: url}, nil)
	p := build(t, f, weather.ProviderOpenWeather)

	_, err := p.Fetch(context.Background(), "London", time.Time{})
	require.ErrorIs(t, err, weather.ErrTransport)
}

func TestWeatherAPI_Current(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "weather-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{
			"location": {"name": "Paris", "country": "France"},
			"current": {"last_updated_epoch": 1718440000, "temp_c": 22.0, "humidity": 40, "wind_kph": 18,
				"condition": {"text": "Patchy rain nearby"}}
		}`))
	})
	p := build(t, f, weather.ProviderWeatherAPI)

	r, err := p.Fetch(context.Background(), "Paris", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Paris, France", r.Location)
	assert.Equal(t, 22.0, r.TemperatureC)
	assert.InDelta(t, 5.0, r.WindSpeedMS, 0.001)
	assert.Equal(t, weather.ConditionRain, r.Condition)
	assert.Equal(t, weather.ProviderWeatherAPI, r.Provider)
}

func TestWeatherAPI_Historical(t *testing.T) {
	date := time.Date(2015, time.July, 4, 0, 0, 0, 0, time.UTC)
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/history.json", r.URL.Path)
		assert.Equal(t, "2015-07-04", r.URL.Query().Get("dt"))
		_, _ = w.Write([]byte(`{
			"location": {"name": "Paris", "country": "France"},
			"forecast": {"forecastday": [{"date_epoch": 1435968000,
				"day": {"avgtemp_c": 25.3, "avghumidity": 55, "maxwind_kph": 36, "condition": {"text": "Sunny"}}}]}
		}`))
	})
	p := build(t, f, weather.ProviderWeatherAPI)

	r, err := p.Fetch(context.Background(), "Paris", date)
	require.NoError(t, err)
	assert.Equal(t, weather.KindHistorical, r.Kind)
	assert.Equal(t, 25.3, r.TemperatureC)
	assert.InDelta(t, 10.0, r.WindSpeedMS, 0.001)
	assert.Equal(t, weather.ConditionClear, r.Condition)
	assert.Equal(t, date, r.Timestamp)
}

func TestWeatherAPI_DateWindow(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	})
	p := build(t, f, weather.ProviderWeatherAPI)
	ctx := context.Background()

	_, err := p.Fetch(ctx, "Paris", time.Date(2009, time.December, 31, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, weather.ErrUnsupportedDate)

	_, err = p.Fetch(ctx, "Paris", testNow.AddDate(0, 0, 2))
	require.ErrorIs(t, err, weather.ErrUnsupportedDate)
}

func TestWeatherAPI_ClientErrors(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"no location":  {`{"error": {"code": 1006, "message": "No matching location found."}}`, weather.ErrNotFound},
		"invalid key":  {`{"error": {"code": 2006, "message": "API key is invalid."}}`, weather.ErrAuth},
		"other":        {`{"error": {"code": 9999, "message": "Internal application error."}}`, weather.ErrTransport},
		"garbage body": {`<html>`, weather.ErrTransport},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(c.body))
			})
			p := build(t, f, weather.ProviderWeatherAPI)

			_, err := p.Fetch(context.Background(), "Nowhere", time.Time{})
			require.ErrorIs(t, err, c.want)
		})
	}
}

func TestWeatherAPI_MissingTemperature(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"location": {"name": "Paris"}, "current": {"humidity": 10}}`))
	})
	p := build(t, f, weather.ProviderWeatherAPI)

	_, err := p.Fetch(context.Background(), "Paris", time.Time{})
	require.ErrorIs(t, err, weather.ErrNormalization)
}

func TestConditionMapping(t *testing.T) {
	assert.Equal(t, weather.ConditionStorm, mapWeatherAPICondition("Thundery outbreaks possible"))
	assert.Equal(t, weather.ConditionSnow, mapWeatherAPICondition("Light snow"))
	assert.Equal(t, weather.ConditionMist, mapWeatherAPICondition("Freezing fog"))
	assert.Equal(t, weather.ConditionCloudy, mapWeatherAPICondition("Overcast"))
	assert.Equal(t, weather.ConditionUnknown, mapWeatherAPICondition(""))

	assert.Equal(t, weather.ConditionMist, mapOpenWeatherCondition([]owWeather{{Main: "Haze"}}))
	assert.Equal(t, weather.ConditionUnknown, mapOpenWeatherCondition(nil))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestHumidityAbsentIsUnavailable(t *testing.T) {
	date := testNow.AddDate(0, -1, 0)
	cases := []struct {
		name string
		id   weather.ProviderID
		date time.Time
		body string
	}{
		{"openweather current", weather.ProviderOpenWeather, time.Time{},
			`{"name": "London", "main": {"temp": 1}}`},
		{"openweather historical", weather.ProviderOpenWeather, date,
			`{"list": [{"dt": 1715000000, "main": {"temp": 274.15}}]}`},
		{"weatherapi current", weather.ProviderWeatherAPI, time.Time{},
			`{"location": {"name": "Paris"}, "current": {"temp_c": 1}}`},
		{"weatherapi historical", weather.ProviderWeatherAPI, date,
			`{"forecast": {"forecastday": [{"day": {"avgtemp_c": 1}}]}}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(c.body))
			})
			p := build(t, f, c.id)

			r, err := p.Fetch(context.Background(), "London", c.date)
			require.NoError(t, err)
			h, ok := r.Humidity()
			assert.False(t, ok)
			assert.Zero(t, h)
			assert.Nil(t, r.HumidityPct)
		})
	}
}

func TestSingleOutboundCallOnFailure(t *testing.T) {
	cases := []struct {
		id     weather.ProviderID
		status int
	}{
		{weather.ProviderOpenWeather, http.StatusInternalServerError},
		{weather.ProviderOpenWeather, http.StatusTooManyRequests},
		{weather.ProviderWeatherAPI, http.StatusServiceUnavailable},
		{weather.ProviderWeatherAPI, http.StatusUnauthorized},
	}

	for _, c := range cases {
		t.Run(string(c.id)+" "+http.StatusText(c.status), func(t *testing.T) {
			var calls atomic.Int32
			f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(c.status)
			})
			p := build(t, f, c.id)

			_, err := p.Fetch(context.Background(), "London", time.Time{})
			require.Error(t, err)
			assert.True(t, weather.IsProviderError(err))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestSingleOutboundCallOnTransportError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("response writer cannot hijack")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	f := NewFactory(HTTPClientConfig{Client: srv.Client()}, clockwork.NewFakeClockAt(testNow),
		Endpoints{WeatherAPI: srv.URL + "/v1"}, nil)
	p := build(t, f, weather.ProviderWeatherAPI)

	_, err := p.Fetch(context.Background(), "Paris", time.Time{})
	require.ErrorIs(t, err, weather.ErrTransport)
	assert.Equal(t, int32(1), calls.Load())
}
