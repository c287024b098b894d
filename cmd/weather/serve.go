package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-cli/internal/api/http"
	"github.com/i474232898/weather-cli/internal/scheduler"
	"github.com/i474232898/weather-cli/internal/weather"
)

func parseServe(fs *flag.FlagSet, args []string) (execFunc, error) {
	addr := fs.String("addr", "", "listen address (default: WEATHER_LISTEN_ADDR or :8080)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) > 0 {
		return nil, fmt.Errorf("%w: serve takes no arguments", errUsage)
	}

	return func(ctx context.Context, a *app) error {
		listen := *addr
		if listen == "" {
			listen = a.cfg.ListenAddr
		}

		srv := httpapi.NewApp(a.logger.Named("http"))
		httpapi.RegisterRoutes(srv, a.resolver, a.settings)

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("http server listening", zap.String("addr", listen))
			errCh <- srv.Listen(listen)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
			a.logger.Error("error during shutdown", zap.Error(err))
		}
		return nil
	}, nil
}

func parseWatch(fs *flag.FlagSet, args []string) (execFunc, error) {
	provider := fs.String("provider", "", "provider id or name (default: the default provider)")
	interval := fs.Duration("interval", 0, "time between sweeps (default: WEATHER_WATCH_INTERVAL or 15m)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) > 0 {
		return nil, fmt.Errorf("%w: watch takes no arguments", errUsage)
	}
	if *interval < 0 {
		return nil, fmt.Errorf("%w: --interval must be positive", errUsage)
	}
	if *provider != "" {
		if _, err := weather.ParseProviderID(*provider); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, a *app) error {
		every := *interval
		if every == 0 {
			every = a.cfg.WatchInterval
		}

		sched := scheduler.New(a.resolver, a.settings, *provider, every, a.cfg.HTTPTimeout, a.logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start watch: %w", err)
		}
		defer sched.Stop()

		<-ctx.Done()
		return nil
	}, nil
}
