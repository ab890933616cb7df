package resilience

import (
	"context"
	"sync"
	"time"
)

// Executor composes a circuit breaker, retry, and per-attempt timeout.
// Any of them may be absent.
type Executor struct {
	breaker *CircuitBreaker
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it calls through.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// Breaker returns the configured circuit breaker, or nil.
func (e *Executor) Breaker() *CircuitBreaker {
	return e.breaker
}

// Execute runs op through the breaker, then retry, then the timeout.
// The breaker sees one outcome per Execute, after retries are exhausted.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if e.timeout != nil {
		inner := run
		run = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.retry != nil {
		inner := run
		run = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return e.breaker.Execute(ctx, inner) }
	}
	return run(ctx)
}

// Call runs fn through e and returns its result. An attempt abandoned by
// the timeout cannot overwrite the result of a later attempt.
func Call[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	var (
		mu   sync.Mutex
		out  T
		done bool
	)
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		if !done && ctx.Err() == nil {
			out, done = v, true
		}
		mu.Unlock()
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	if err != nil || !done {
		var zero T
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = ErrTimeout
		}
		return zero, err
	}
	return out, nil
}
