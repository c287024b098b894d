package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-cli/internal/weather"
)

func clearEnv(t *testing.T) {
	t.Helper()
	chdirForTest(t, t.TempDir())
	for _, k := range []string{
		"WEATHER_CONFIG_FILE", "WEATHER_HTTP_TIMEOUT", "WEATHER_LISTEN_ADDR", "WEATHER_WATCH_INTERVAL",
		"OPENWEATHER_BASE_URL", "OPENWEATHER_HISTORY_URL", "WEATHERAPI_BASE_URL",
		"OPENWEATHER_API_KEY", "WEATHERAPI_API_KEY", "WEATHER_LOG_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(xdg, "weather", "config.yaml"), cfg.ConfigFile)
	assert.Equal(t, filepath.Join(xdg, "weather", "logs"), cfg.LogDir)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.WatchInterval)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.SeedKeys)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_CONFIG_FILE", "/tmp/weather.db")
	t.Setenv("WEATHER_HTTP_TIMEOUT", "3s")
	t.Setenv("WEATHER_WATCH_INTERVAL", "1m")
	t.Setenv("WEATHERAPI_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("OPENWEATHER_API_KEY", "ow-key")
	t.Setenv("WEATHER_LOG_DIR", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LogDir)

	assert.Equal(t, "/tmp/weather.db", cfg.ConfigFile)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Minute, cfg.WatchInterval)
	assert.Equal(t, "http://localhost:9999/v1", cfg.WeatherAPIURL)
	assert.Equal(t, map[weather.ProviderID]string{weather.ProviderOpenWeather: "ow-key"}, cfg.SeedKeys)
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_CONFIG_FILE", "/tmp/x.yaml")
	t.Setenv("WEATHER_HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_HTTP_TIMEOUT")
}

// chdirForTest changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
