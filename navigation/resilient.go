package navigation

import (
	"context"
	"errors"

	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/resilience"
)

// ResilientSource guards a remote Source with an executor. Not-found
// answers are permanent: they are neither retried nor counted against the
// circuit breaker.
type ResilientSource struct {
	src  Source
	exec *resilience.Executor
}

// NewResilientSource wraps src. A nil executor calls straight through.
func NewResilientSource(src Source, exec *resilience.Executor) *ResilientSource {
	if exec == nil {
		exec = resilience.NewExecutor()
	}
	return &ResilientSource{src: src, exec: exec}
}

func (s *ResilientSource) Menu(ctx context.Context, id string) (*nav.Menu, error) {
	return resilience.Call(ctx, s.exec, func(ctx context.Context) (*nav.Menu, error) {
		m, err := s.src.Menu(ctx, id)
		if errors.Is(err, ErrMenuNotFound) {
			return nil, resilience.Permanent(err)
		}
		return m, err
	})
}

func (s *ResilientSource) MenusByScope(ctx context.Context, scope nav.Scope, tenantID string) ([]*nav.Menu, error) {
	return resilience.Call(ctx, s.exec, func(ctx context.Context) ([]*nav.Menu, error) {
		return s.src.MenusByScope(ctx, scope, tenantID)
	})
}

func (s *ResilientSource) Menus(ctx context.Context) ([]*nav.Menu, error) {
	return resilience.Call(ctx, s.exec, s.src.Menus)
}

var _ Source = (*ResilientSource)(nil)
