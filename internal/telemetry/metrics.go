package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/mytwin/twin-admin"
)

// Metrics holds the instruments recorded by the session core.
type Metrics struct {
	// Refresh metrics
	RefreshTotal          metric.Int64Counter
	RefreshFailuresTotal  metric.Int64Counter
	RefreshCoalescedTotal metric.Int64Counter
	RefreshDuration       metric.Float64Histogram

	// Recovery metrics
	AuthErrorsTotal metric.Int64Counter
	ReplaysTotal    metric.Int64Counter

	// Guard metrics
	GuardDecisionsTotal metric.Int64Counter

	// Operation metrics
	OperationsTotal   metric.Int64Counter
	OperationDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments. Instruments come
// from the global provider, which is a no-op until telemetry.Init runs.
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.RefreshTotal, _ = meter.Int64Counter(
		"twin_admin.session.refresh.total",
		metric.WithDescription("Total number of token refresh network calls"),
		metric.WithUnit("{call}"),
	)

	m.RefreshFailuresTotal, _ = meter.Int64Counter(
		"twin_admin.session.refresh.failures.total",
		metric.WithDescription("Total number of failed token refresh calls"),
		metric.WithUnit("{error}"),
	)

	m.RefreshCoalescedTotal, _ = meter.Int64Counter(
		"twin_admin.session.refresh.coalesced.total",
		metric.WithDescription("Total number of refresh requests served by an in-flight refresh"),
		metric.WithUnit("{request}"),
	)

	m.RefreshDuration, _ = meter.Float64Histogram(
		"twin_admin.session.refresh.duration",
		metric.WithDescription("Duration of token refresh calls"),
		metric.WithUnit("ms"),
	)

	m.AuthErrorsTotal, _ = meter.Int64Counter(
		"twin_admin.graphql.auth_errors.total",
		metric.WithDescription("Total number of responses failing with an authentication error"),
		metric.WithUnit("{response}"),
	)

	m.ReplaysTotal, _ = meter.Int64Counter(
		"twin_admin.graphql.replays.total",
		metric.WithDescription("Total number of operations replayed after a refresh"),
		metric.WithUnit("{operation}"),
	)

	m.GuardDecisionsTotal, _ = meter.Int64Counter(
		"twin_admin.guard.decisions.total",
		metric.WithDescription("Total number of guard evaluations by outcome"),
		metric.WithUnit("{decision}"),
	)

	m.OperationsTotal, _ = meter.Int64Counter(
		"twin_admin.graphql.operations.total",
		metric.WithDescription("Total number of GraphQL operations sent"),
		metric.WithUnit("{operation}"),
	)

	m.OperationDuration, _ = meter.Float64Histogram(
		"twin_admin.graphql.operation.duration",
		metric.WithDescription("Duration of GraphQL operations"),
		metric.WithUnit("ms"),
	)

	return m
}
