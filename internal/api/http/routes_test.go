package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-cli/internal/store"
	"github.com/i474232898/weather-cli/internal/weather"
	"github.com/i474232898/weather-cli/internal/weather/providers"
)

func newTestApp(t *testing.T) (*fiber.App, *store.ConfigStore) {
	t.Helper()

	settings, err := store.Open(context.Background(), store.NewMemoryBackend(nil), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC))
	factory := providers.NewFactory(providers.HTTPClientConfig{}, clock, providers.Endpoints{}, nil)
	resolver := weather.NewResolver(settings, settings, factory.Build, nil)

	app := NewApp(nil)
	RegisterRoutes(app, resolver, settings)
	return app, settings
}

func do(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

// TestWeatherEndpoint verifies alias resolution and the default provider through HTTP.
func TestWeatherEndpoint(t *testing.T) {
	app, settings := newTestApp(t)
	ctx := context.Background()

	// No provider configured yet.
	resp := do(t, app, http.MethodGet, "/api/v1/weather?location=Oslo", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	if err := settings.SetDefaultProvider(ctx, "mock"); err != nil {
		t.Fatalf("set default provider: %v", err)
	}
	if _, err := settings.SetAlias(ctx, "home", "London, UK"); err != nil {
		t.Fatalf("set alias: %v", err)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/weather", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var report weather.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Location != "London, UK" || report.Provider != weather.ProviderMock {
		t.Fatalf("unexpected report: %+v", report)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/weather?location=home&date=2020-01-02", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Kind != weather.KindHistorical {
		t.Fatalf("expected historical report, got %q", report.Kind)
	}
}

// TestWeatherEndpointErrors verifies that error kinds map onto HTTP statuses.
func TestWeatherEndpointErrors(t *testing.T) {
	app, settings := newTestApp(t)
	if err := settings.SetDefaultProvider(context.Background(), "mock"); err != nil {
		t.Fatalf("set default provider: %v", err)
	}

	cases := []struct {
		target string
		status int
	}{
		{"/api/v1/weather", http.StatusBadRequest},                             // no default alias
		{"/api/v1/weather?location=Oslo&date=tomorrow", http.StatusBadRequest}, // unparsable date
		{"/api/v1/weather?location=Oslo&provider=yahoo", http.StatusBadRequest},
		{"/api/v1/weather?location=Oslo&provider=ow", http.StatusBadGateway}, // no key
	}
	for _, c := range cases {
		resp := do(t, app, http.MethodGet, c.target, "")
		if resp.StatusCode != c.status {
			t.Fatalf("%s: expected status %d, got %d", c.target, c.status, resp.StatusCode)
		}
	}
}

// TestAliasEndpoints covers create, update, default selection and removal.
func TestAliasEndpoints(t *testing.T) {
	app, settings := newTestApp(t)

	resp := do(t, app, http.MethodPut, "/api/v1/aliases/Home", `{"address": "London, UK"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var created struct {
		Alias         weather.Alias `json:"alias"`
		BecameDefault bool          `json:"becameDefault"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Alias.Name != "home" || !created.BecameDefault {
		t.Fatalf("unexpected response: %+v", created)
	}

	resp = do(t, app, http.MethodPut, "/api/v1/aliases/work", `{"address": ""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = do(t, app, http.MethodPut, "/api/v1/aliases/work", `{"address": "Paris, FR"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = do(t, app, http.MethodPut, "/api/v1/aliases/work/default", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/aliases", "")
	var list []weather.Alias
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].IsDefault || !list[1].IsDefault {
		t.Fatalf("unexpected aliases: %+v", list)
	}

	resp = do(t, app, http.MethodDelete, "/api/v1/aliases/ghost", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
	resp = do(t, app, http.MethodDelete, "/api/v1/aliases/work", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if len(settings.Aliases()) != 1 {
		t.Fatalf("expected one alias left, got %d", len(settings.Aliases()))
	}
}

// TestProvidersEndpoint verifies keys never leave the server unmasked.
func TestProvidersEndpoint(t *testing.T) {
	app, settings := newTestApp(t)
	if _, err := settings.SetProviderKey(context.Background(), "ow", "supersecret1234"); err != nil {
		t.Fatalf("set key: %v", err)
	}

	resp := do(t, app, http.MethodGet, "/api/v1/providers", "")
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "supersecret") {
		t.Fatalf("api key leaked: %s", raw)
	}

	var views []providerView
	if err := json.Unmarshal(raw, &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(views))
	}
	for _, v := range views {
		if v.ID == weather.ProviderOpenWeather && (!v.Default || v.MaskedKey != "***********1234") {
			t.Fatalf("unexpected openweather view: %+v", v)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newTestApp(t)

	for _, target := range []string{"/health", "/metrics"} {
		resp := do(t, app, http.MethodGet, target, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusOK, resp.StatusCode)
		}
	}
}
