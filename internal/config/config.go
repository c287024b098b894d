package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-cli/internal/weather"
)

type AppConfig struct {
	// ConfigFile is where providers and aliases are persisted. A .db/.sqlite extension
	// selects the SQLite backend.
	ConfigFile string

	// LogDir receives the rotating debug log file. Empty disables file logging.
	LogDir string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// ListenAddr is the address `serve` binds to.
	ListenAddr string

	// WatchInterval controls how often `watch` queries every alias.
	WatchInterval time.Duration

	// Endpoint overrides, empty = provider default.
	OpenWeatherURL        string
	OpenWeatherHistoryURL string
	WeatherAPIURL         string

	// SeedKeys are applied only to providers with no stored key.
	SeedKeys map[weather.ProviderID]string
}

// Load reads configuration from the environment (and an optional .env file) with
// sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	cfg.ConfigFile = os.Getenv("WEATHER_CONFIG_FILE")
	if cfg.ConfigFile == "" {
		path, err := defaultConfigFile()
		if err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	switch dir := os.Getenv("WEATHER_LOG_DIR"); strings.ToLower(dir) {
	case "":
		cfg.LogDir = filepath.Join(filepath.Dir(cfg.ConfigFile), "logs")
	case "off", "none":
		cfg.LogDir = ""
	default:
		cfg.LogDir = dir
	}

	timeout, err := getenvDuration("WEATHER_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	interval, err := getenvDuration("WEATHER_WATCH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.WatchInterval = interval

	cfg.ListenAddr = getenvDefault("WEATHER_LISTEN_ADDR", ":8080")

	cfg.OpenWeatherURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.OpenWeatherHistoryURL = os.Getenv("OPENWEATHER_HISTORY_URL")
	cfg.WeatherAPIURL = os.Getenv("WEATHERAPI_BASE_URL")

	cfg.SeedKeys = map[weather.ProviderID]string{}
	if k := os.Getenv("OPENWEATHER_API_KEY"); k != "" {
		cfg.SeedKeys[weather.ProviderOpenWeather] = k
	}
	if k := os.Getenv("WEATHERAPI_API_KEY"); k != "" {
		cfg.SeedKeys[weather.ProviderWeatherAPI] = k
	}

	return cfg, nil
}

func defaultConfigFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir (set WEATHER_CONFIG_FILE): %w", err)
	}
	return filepath.Join(dir, "weather", "config.yaml"), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
