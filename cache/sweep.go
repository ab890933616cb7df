package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/navcache/observe"
)

// Start launches the background expiry sweep, which runs every
// Policy.SweepInterval until Stop is called or ctx is canceled. Calling
// Start on a running store does nothing.
func (s *Store[V]) Start(ctx context.Context) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go s.sweep(ctx, done)
}

// Stop halts the background sweep and waits for it to exit.
func (s *Store[V]) Stop() {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

func (s *Store[V]) sweep(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.policy.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.PurgeExpired(ctx); n > 0 {
				s.opts.logger.Debug(ctx, "cache sweep removed expired entries", observe.F("removed", n))
			}
		}
	}
}
