package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/navcache/observe"
)

// Handler reacts to an event.
type Handler func(ctx context.Context, ev Event) error

// Bus dispatches events to subscribers.
//
// Contract:
// - Concurrency: safe for concurrent use. Handlers may publish or
// subscribe re-entrantly.
// - Errors: Publish returns every handler error joined; each is also logged.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]subscription
	logger observe.Logger
}

type subscription struct {
	id      string
	name    string
	handler Handler
}

// NewBus creates a bus. A nil logger discards handler failures.
func NewBus(logger observe.Logger) *Bus {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Bus{subs: make(map[Type][]subscription), logger: logger}
}

// Subscribe registers h for events of type t under name, which appears in
// failure logs. The returned function removes the subscription.
func (b *Bus) Subscribe(t Type, name string, h Handler) (unsubscribe func()) {
	sub := subscription{id: uuid.NewString(), name: name, handler: h}

	b.mu.Lock()
	b.subs[t] = append(b.subs[t], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[t]
			for i, s := range list {
				if s.id == sub.id {
					b.subs[t] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[t]) == 0 {
				delete(b.subs, t)
			}
		})
	}
}

// Publish delivers ev to every subscriber of its type, in subscription
// order. Missing ids and timestamps are filled in.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[ev.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler(ctx, ev); err != nil {
			b.logger.Error(ctx, "event handler failed",
				observe.F("event_type", string(ev.Type)),
				observe.F("event_id", ev.ID),
				observe.F("handler", s.name),
				observe.F("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribers returns the number of handlers registered for t.
func (b *Bus) Subscribers(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}
