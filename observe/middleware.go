package observe

import (
	"context"
	"time"
)

// ResolveFunc is the instrumented call shape. It reports whether the result
// was served from cache.
type ResolveFunc func(ctx context.Context, op Operation) (hit bool, err error)

// Middleware wraps navigation operations with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap returns a function safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a Middleware. Nil arguments fall back to no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, now: time.Now}
}

// NopMiddleware returns a middleware that only calls through.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Wrap instruments fn.
func (m *Middleware) Wrap(fn ResolveFunc) ResolveFunc {
	return func(ctx context.Context, op Operation) (bool, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := m.now()

		hit, err := fn(ctx, op)

		elapsed := m.now().Sub(start)
		m.tracer.EndSpan(span, hit, err)
		m.metrics.RecordResolution(ctx, op, elapsed, hit, err)

		fields := append(op.fields(),
			F("cache_hit", hit),
			F("duration_ms", float64(elapsed)/float64(time.Millisecond)),
		)
		if err != nil {
			fields = append(fields, F("error", err))
			m.logger.Warn(ctx, "navigation operation failed", fields...)
		} else {
			m.logger.Debug(ctx, "navigation operation completed", fields...)
		}
		return hit, err
	}
}

// MiddlewareFromObserver creates a Middleware backed by obs.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
