package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Outbound provider calls by provider id and outcome.
	ProviderCallsTotal *prometheus.CounterVec

	// Provider round-trip latency in seconds.
	ProviderCallDuration *prometheus.HistogramVec

	// Weather queries by terminal stage ("done" or "failed").
	QueriesTotal *prometheus.CounterVec

	// Settings mutations persisted by the config store.
	ConfigSavesTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_provider_calls_total",
			Help: "Total number of outbound weather provider calls",
		},
		[]string{"provider", "status"},
	)
	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_provider_call_duration_seconds",
			Help:    "Weather provider latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_queries_total",
			Help: "Total number of weather queries by outcome",
		},
		[]string{"outcome"},
	)
	ConfigSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_config_saves_total",
			Help: "Total number of settings saves by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(ProviderCallsTotal, ProviderCallDuration, QueriesTotal, ConfigSavesTotal)
}

// RecordQuery counts a finished query.
func RecordQuery(outcome string) {
	QueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordProviderCall counts one provider round trip and its latency.
func RecordProviderCall(provider, status string, seconds float64) {
	ProviderCallsTotal.WithLabelValues(provider, status).Inc()
	ProviderCallDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordConfigSave counts a settings save attempt.
func RecordConfigSave(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ConfigSavesTotal.WithLabelValues(result).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
