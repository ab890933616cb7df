package navigation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/navcache/nav"
)

// Source supplies menus to a Service. Returned menus are treated as
// read-only.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Menu returns an error wrapping ErrMenuNotFound for unknown ids.
type Source interface {
	Menu(ctx context.Context, id string) (*nav.Menu, error)
	MenusByScope(ctx context.Context, scope nav.Scope, tenantID string) ([]*nav.Menu, error)
	Menus(ctx context.Context) ([]*nav.Menu, error)
}

// MemorySource is an in-process Source. Every Put of an existing id bumps
// the menu version.
type MemorySource struct {
	mu    sync.RWMutex
	menus map[string]*nav.Menu
}

// NewMemorySource creates a source holding the given menus.
func NewMemorySource(menus ...*nav.Menu) *MemorySource {
	s := &MemorySource{menus: make(map[string]*nav.Menu)}
	for _, m := range menus {
		s.Put(m)
	}
	return s
}

// Put stores m and returns the version it was stored at.
func (s *MemorySource) Put(m *nav.Menu) int64 {
	cp := *m
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.menus[m.ID]; ok && cp.Version <= prev.Version {
		cp.Version = prev.Version + 1
	}
	if cp.Version <= 0 {
		cp.Version = 1
	}
	s.menus[m.ID] = &cp
	return cp.Version
}

// PutSpec builds spec and stores it.
func (s *MemorySource) PutSpec(spec nav.MenuSpec) (int64, error) {
	m, err := spec.Build(0)
	if err != nil {
		return 0, err
	}
	return s.Put(m), nil
}

// Delete removes the menu with id.
func (s *MemorySource) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.menus[id]
	delete(s.menus, id)
	return ok
}

func (s *MemorySource) Menu(_ context.Context, id string) (*nav.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMenuNotFound, id)
	}
	return m, nil
}

func (s *MemorySource) MenusByScope(_ context.Context, scope nav.Scope, tenantID string) ([]*nav.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedMenus(s.menus, func(m *nav.Menu) bool {
		return m.Scope == scope && (tenantID == "" || m.TenantID == tenantID)
	}), nil
}

func (s *MemorySource) Menus(_ context.Context) ([]*nav.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedMenus(s.menus, nil), nil
}

// sortedMenus returns the menus accepted by keep, ordered by id.
func sortedMenus(menus map[string]*nav.Menu, keep func(*nav.Menu) bool) []*nav.Menu {
	out := make([]*nav.Menu, 0, len(menus))
	for _, m := range menus {
		if keep == nil || keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ Source = (*MemorySource)(nil)
