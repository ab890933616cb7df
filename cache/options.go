package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/navcache/observe"
)

type options struct {
	logger       observe.Logger
	metrics      observe.Metrics
	now          func() time.Time
	sizer        func(any) (int64, error)
	onInvalidate func(context.Context, InvalidationEvent)
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink for cache events.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSizer replaces SizeOf for measuring values.
func WithSizer(fn func(any) (int64, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.sizer = fn
		}
	}
}

// WithInvalidationHook registers fn to run after each recorded invalidation.
// It runs outside the store lock and may call back into the store.
func WithInvalidationHook(fn func(context.Context, InvalidationEvent)) Option {
	return func(o *options) {
		o.onInvalidate = fn
	}
}

func defaultOptions() options {
	return options{
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		now:     time.Now,
		sizer:   SizeOf,
	}
}
