// Package observe provides OpenTelemetry metrics for the narration service,
// exported through a Prometheus bridge so they can be scraped at /metrics.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/voxline/narravox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks per-segment text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// JobDuration tracks end-to-end narration job latency.
	JobDuration metric.Float64Histogram

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors by provider and class.
	ProviderErrors metric.Int64Counter

	// SynthesisRetries counts rate-limit retries by provider.
	SynthesisRetries metric.Int64Counter

	// JobsCompleted counts finished jobs by terminal status.
	JobsCompleted metric.Int64Counter

	// ActiveJobs tracks the number of jobs currently being processed.
	ActiveJobs metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synthesis calls, which routinely take several seconds per segment.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("narravox.synthesis.duration",
		metric.WithDescription("Latency of per-segment text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.JobDuration, err = m.Float64Histogram("narravox.job.duration",
		metric.WithDescription("End-to-end narration job latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("narravox.provider.requests",
		metric.WithDescription("Total provider API requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("narravox.provider.errors",
		metric.WithDescription("Total provider errors by provider and class."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisRetries, err = m.Int64Counter("narravox.synthesis.retries",
		metric.WithDescription("Total rate-limit retries by provider."),
	); err != nil {
		return nil, err
	}
	if met.JobsCompleted, err = m.Int64Counter("narravox.jobs.completed",
		metric.WithDescription("Total finished jobs by terminal status."),
	); err != nil {
		return nil, err
	}

	if met.ActiveJobs, err = m.Int64UpDownCounter("narravox.active_jobs",
		metric.WithDescription("Number of jobs currently being processed."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSynthesis records one synthesis call with its latency and outcome.
func (m *Metrics) RecordSynthesis(ctx context.Context, provider, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.ProviderRequests.Add(ctx, 1, attrs)
	m.SynthesisDuration.Record(ctx, seconds, attrs)
}

// RecordRetry records one rate-limit retry for a provider.
func (m *Metrics) RecordRetry(ctx context.Context, provider string) {
	m.SynthesisRetries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordProviderError records a provider error by class.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, class string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("class", class),
		),
	)
}

// RecordJobFinished records a terminal job with its total latency.
func (m *Metrics) RecordJobFinished(ctx context.Context, status string, seconds float64) {
	m.JobsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.JobDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
