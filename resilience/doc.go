// Package resilience guards calls to collaborators that may fail or stall,
// such as a remote menu source.
//
// Three patterns are provided and composed by Executor, outermost first:
// a circuit breaker that stops calling a failing dependency, retry with
// backoff, and a per-attempt timeout.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//	menu, err := resilience.Call(ctx, exec, func(ctx context.Context) (*nav.Menu, error) {
//	    return remote.Menu(ctx, id)
//	})
//
// Errors wrapped with Permanent are neither retried nor counted against
// the breaker.
package resilience
