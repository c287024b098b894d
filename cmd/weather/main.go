// Command weather queries current or historical weather through interchangeable
// providers, with short aliases for frequently used locations.
//
// Usage:
//
//	weather get [LOCATION|ALIAS] [--provider ID] [--date YYYY-MM-DD] [--json]
//	weather provider [ID] [--key KEY] [--list]
//	weather alias [NAME] [--address ADDRESS] [--list] [--remove NAME]
//	weather serve [--addr :8080]
//	weather watch [--provider ID] [--interval 15m]
//
// Every command accepts --debug.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/config"
	"github.com/i474232898/weather-cli/internal/observability"
	"github.com/i474232898/weather-cli/internal/store"
	"github.com/i474232898/weather-cli/internal/weather"
	"github.com/i474232898/weather-cli/internal/weather/providers"
)

const userAgent = "weather-cli/1.0"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the wiring shared by every command.
type app struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	settings *store.ConfigStore
	factory  *providers.Factory
	resolver *weather.Resolver
	stdout   io.Writer
}

// execFunc runs a parsed command against the wired application.
type execFunc func(ctx context.Context, a *app) error

// parseFunc validates a command's arguments and returns what to execute.
type parseFunc func(fs *flag.FlagSet, args []string) (execFunc, error)

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var parse parseFunc
	switch cmd {
	case "get":
		parse = parseGet
	case "provider":
		parse = parseProvider
	case "alias":
		parse = parseAlias
	case "serve":
		parse = parseServe
	case "watch":
		parse = parseWatch
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return 2
	}

	fs := flag.NewFlagSet("weather "+cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	debug := fs.Bool("debug", false, "enable debug logging on stderr")

	exec, err := parse(fs, rest)
	fs.SetOutput(stderr)
	if err == nil {
		var a *app
		a, err = newApp(ctx, *debug, stdout)
		if err == nil {
			err = exec(ctx, a)
			a.close()
		}
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		fs.SetOutput(stdout)
		fs.Usage()
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// parseArgs parses flags that may appear before, between or after positional
// arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newApp(ctx context.Context, debug bool, stdout io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(debug, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	backend, err := store.OpenBackend(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	settings, err := store.Open(ctx, backend, logger.Named("store"))
	if err != nil {
		backend.Close()
		return nil, err
	}
	if err := settings.SeedKeys(ctx, cfg.SeedKeys); err != nil {
		logger.Warn("could not persist API keys from environment", zap.Error(err))
	}
	logger.Debug("settings loaded", zap.String("file", cfg.ConfigFile))

	factory := providers.NewFactory(
		providers.HTTPClientConfig{
			Client:    &http.Client{Timeout: cfg.HTTPTimeout},
			UserAgent: userAgent,
		},
		nil,
		providers.Endpoints{
			OpenWeather:        cfg.OpenWeatherURL,
			OpenWeatherHistory: cfg.OpenWeatherHistoryURL,
			WeatherAPI:         cfg.WeatherAPIURL,
		},
		logger.Named("providers"),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		settings: settings,
		factory:  factory,
		resolver: weather.NewResolver(settings, settings, factory.Build, logger.Named("resolver")),
		stdout:   stdout,
	}, nil
}

func (a *app) close() {
	if err := a.settings.Close(); err != nil {
		a.logger.Warn("close settings", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// exitCode maps error kinds onto process exit codes: 2 for usage and configuration
// problems, 3 for provider failures, 1 for anything else.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage),
		errors.Is(err, store.ErrInvalidAlias),
		errors.Is(err, store.ErrInvalidSettings):
		return 2
	case weather.IsProviderError(err):
		return 3
	case weather.Kind(err) != nil:
		return 2
	default:
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: weather <command> [arguments]

Commands:
  get [LOCATION|ALIAS]   show weather (--provider ID, --date DATE, --json)
  provider [ID]          set the default provider, or its key with --key (--list)
  alias [NAME]           set the default alias, or its address with --address (--list, --remove NAME)
  serve                  run the HTTP API (--addr)
  watch                  query every alias periodically (--provider, --interval)

Providers: mock (MockWeather), ow (OpenWeather), wa (WeatherApi)
Global flags: --debug
`)
}
