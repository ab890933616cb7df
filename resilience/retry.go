package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between attempts.
type BackoffStrategy int

const (
	BackoffExponential BackoffStrategy = iota
	BackoffLinear
	BackoffConstant
)

// RetryConfig configures Retry. Zero fields take defaults.
type RetryConfig struct {
	// MaxAttempts includes the first call. Default: 3.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay precedes the first retry. Default: 50ms.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps any single delay. Default: 2s.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier applies to exponential backoff. Default: 2.
	Multiplier float64 `yaml:"multiplier"`

	Strategy BackoffStrategy `yaml:"-"`

	// Jitter adds up to 25% random delay.
	Jitter bool `yaml:"jitter"`

	// RetryIf decides whether err is retried. By default every error
	// except permanent ones and context cancellation is retried.
	RetryIf func(err error) bool `yaml:"-"`

	// OnRetry runs before each retry.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

func defaultRetryIf(err error) bool {
	return err != nil && !IsPermanent(err) && !errors.Is(err, context.Canceled)
}

// Retry runs an operation until it succeeds or attempts run out.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 50 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = defaultRetryIf
	}
	return &Retry{config: config}
}

// Execute runs op, retrying per the configuration. It returns the last
// error, or ctx.Err() if the context ends while waiting.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= r.config.MaxAttempts || !r.config.RetryIf(err) {
			return err
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Retry) delay(attempt int) time.Duration {
	var d time.Duration
	switch r.config.Strategy {
	case BackoffConstant:
		d = r.config.InitialDelay
	case BackoffLinear:
		d = r.config.InitialDelay * time.Duration(attempt)
	default:
		d = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}
	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
