package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cli/internal/observability"
)

// Stage is a step of a single query's lifecycle.
type Stage int

const (
	StageResolvingAlias Stage = iota
	StageSelectingProvider
	StageDispatching
	StageNormalizing
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageResolvingAlias:
		return "resolving_alias"
	case StageSelectingProvider:
		return "selecting_provider"
	case StageDispatching:
		return "dispatching"
	case StageNormalizing:
		return "normalizing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AliasResolver turns a user token into a location address.
type AliasResolver interface {
	ResolveAlias(token string) (string, error)
}

// ProviderSelector picks the provider for a query, honoring an optional override.
type ProviderSelector interface {
	ResolveProvider(override string, build ProviderFactory) (Provider, error)
}

// Resolver orchestrates a query: alias resolution, provider selection and dispatch.
// It keeps no state between queries and never persists anything.
type Resolver struct {
	aliases   AliasResolver
	providers ProviderSelector
	build     ProviderFactory
	logger    *zap.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(aliases AliasResolver, providers ProviderSelector, build ProviderFactory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		aliases:   aliases,
		providers: providers,
		build:     build,
		logger:    logger,
	}
}

// Get resolves token (empty = default alias), selects a provider (empty override = default)
// and fetches the report for date (zero = current conditions).
//
// Errors are returned as produced by the failing stage so callers can match them with errors.Is.
func (r *Resolver) Get(ctx context.Context, token, override string, date time.Time) (Report, error) {
	queryID := uuid.NewString()
	ctx = WithRequestID(ctx, queryID)
	log := r.logger.With(zap.String("queryId", queryID))

	stage := StageResolvingAlias
	fail := func(err error) (Report, error) {
		log.Debug("query failed", zap.Stringer("stage", stage), zap.Error(err))
		observability.RecordQuery(StageFailed.String())
		return Report{}, err
	}

	log.Debug("resolving alias", zap.String("token", token))
	address, err := r.aliases.ResolveAlias(token)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(address) == "" {
		return fail(fmt.Errorf("%w: empty location", ErrNotFound))
	}

	stage = StageSelectingProvider
	log.Debug("selecting provider", zap.String("address", address), zap.String("override", override))
	provider, err := r.providers.ResolveProvider(override, r.build)
	if err != nil {
		return fail(err)
	}

	stage = StageDispatching
	log.Debug("dispatching query",
		zap.String("provider", string(provider.ID())),
		zap.Bool("historical", !date.IsZero()),
	)
	report, err := provider.Fetch(ctx, address, date)
	if err != nil {
		return fail(err)
	}

	stage = StageNormalizing
	if report.Provider == "" {
		report.Provider = provider.ID()
	}
	if report.Condition == "" {
		report.Condition = ConditionUnknown
	}
	report.Timestamp = report.Timestamp.UTC()

	stage = StageDone
	log.Debug("query completed", zap.Stringer("stage", stage), zap.String("location", report.Location))
	observability.RecordQuery(StageDone.String())
	return report, nil
}
