package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheEvent names a cache lifecycle event counted by Metrics.
type CacheEvent string

const (
	CacheHit          CacheEvent = "hit"
	CacheMiss         CacheEvent = "miss"
	CacheEviction     CacheEvent = "eviction"
	CacheExpiration   CacheEvent = "expiration"
	CacheInvalidation CacheEvent = "invalidation"
	CacheRejection    CacheEvent = "rejection"
)

// Metrics records navigation and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordResolution records one navigation operation.
	RecordResolution(ctx context.Context, op Operation, duration time.Duration, hit bool, err error)

	// RecordCacheEvent adds n occurrences of ev.
	RecordCacheEvent(ctx context.Context, ev CacheEvent, n int64)
}

type otelMetrics struct {
	total    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	cache    metric.Int64Counter
}

// NewMetrics registers the navigation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	total, err := meter.Int64Counter(
		"nav.resolve.total",
		metric.WithDescription("Navigation operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	errCount, err := meter.Int64Counter(
		"nav.resolve.errors",
		metric.WithDescription("Navigation operations that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"nav.resolve.duration_ms",
		metric.WithDescription("Navigation operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	cache, err := meter.Int64Counter(
		"nav.cache.events",
		metric.WithDescription("Cache lifecycle events by type"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &otelMetrics{total: total, errors: errCount, duration: duration, cache: cache}, nil
}

func (m *otelMetrics) RecordResolution(ctx context.Context, op Operation, duration time.Duration, hit bool, err error) {
	attrs := append(op.attributes(), attribute.Bool("nav.cache_hit", hit))
	opt := metric.WithAttributes(attrs...)

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *otelMetrics) RecordCacheEvent(ctx context.Context, ev CacheEvent, n int64) {
	if n <= 0 {
		return
	}
	m.cache.Add(ctx, n, metric.WithAttributes(attribute.String("nav.cache_event", string(ev))))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordResolution(context.Context, Operation, time.Duration, bool, error) {}
func (noopMetrics) RecordCacheEvent(context.Context, CacheEvent, int64)                     {}
