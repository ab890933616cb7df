package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds each attempt of an operation.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive duration defaults
// to 5 seconds.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 5 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured bound.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a derived deadline. It returns ErrTimeout when the
// bound elapses first; op keeps running in the background until it
// observes its canceled context.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
