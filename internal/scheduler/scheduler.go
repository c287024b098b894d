package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/weather"
)

// AliasLister supplies the aliases to watch.
type AliasLister interface {
	Aliases() []weather.Alias
}

// Result is the outcome of one alias query within a sweep.
type Result struct {
	Alias  string
	Report weather.Report
	Err    error
}

// Scheduler periodically queries the weather for every stored alias.
type Scheduler struct {
	scheduler *gocron.Scheduler
	resolver  *weather.Resolver
	aliases   AliasLister
	override  string
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. override selects a provider for every query; empty
// means the default provider.
func New(resolver *weather.Resolver, aliases AliasLister, override string, interval, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		resolver:  resolver,
		aliases:   aliases,
		override:  override,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.Named("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The first
// sweep runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("watch started", zap.Duration("interval", interval))
	return nil
}

// Sweep queries every alias one after another and logs each report. Failures are
// logged and do not stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context) []Result {
	aliases := s.aliases.Aliases()
	if len(aliases) == 0 {
		s.logger.Warn("no aliases configured; nothing to watch")
		return nil
	}

	results := make([]Result, 0, len(aliases))
	for _, a := range aliases {
		if ctx.Err() != nil {
			break
		}

		qctx := ctx
		var cancel context.CancelFunc = func() {}
		if s.timeout > 0 {
			qctx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		report, err := s.resolver.Get(qctx, a.Name, s.override, time.Time{})
		cancel()

		results = append(results, Result{Alias: a.Name, Report: report, Err: err})
		if err != nil {
			s.logger.Error("weather query failed", zap.String("alias", a.Name), zap.Error(err))
			continue
		}
		s.logger.Info("weather report",
			zap.String("alias", a.Name),
			zap.String("location", report.Location),
			zap.String("provider", string(report.Provider)),
			zap.Float64("temperatureC", report.TemperatureC),
			zap.String("condition", string(report.Condition)),
			zap.String("description", report.Description),
			zap.Time("timestamp", report.Timestamp),
		)
	}
	return results
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
