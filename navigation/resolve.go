package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/navcache/cache"
	"github.com/jonwraymond/navcache/events"
	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/observe"
)

// Resolution is the navigation resolved for one principal.
type Resolution struct {
	MenuID   string    `json:"menu_id"`
	Version  int64     `json:"version"`
	Tree     *nav.Tree `json:"items"`
	CacheHit bool      `json:"cache_hit"`
}

// Resolve returns the navigation visible to p. An empty menuID selects the
// most specific menu: user, then tenant, then global, then system (system
// administrators only).
//
// A cached tree is served only when it was computed from the menu's current
// version; otherwise the menu is filtered again and the result cached under
// the principal's fingerprint.
func (s *Service) Resolve(ctx context.Context, p nav.Principal, menuID string) (*Resolution, error) {
	op := observe.Operation{
		Name:     "resolve",
		MenuID:   menuID,
		UserID:   p.UserID,
		TenantID: p.TenantID,
		Role:     p.Role,
	}
	var res *Resolution
	_, err := s.mw.Wrap(func(ctx context.Context, _ observe.Operation) (bool, error) {
		r, err := s.resolve(ctx, p, menuID)
		if err != nil {
			return false, err
		}
		res = r
		return r.CacheHit, nil
	})(ctx, op)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) resolve(ctx context.Context, p nav.Principal, menuID string) (*Resolution, error) {
	start := s.now()
	m, err := s.selectMenu(ctx, p, menuID)
	if err != nil {
		return nil, err
	}

	f := fingerprint(m, p)
	fresh := func(e cache.Entry[*nav.Tree]) bool { return e.Version == m.Version }
	tree, hit, err := s.store.GetOrLoad(ctx, f.Key(), fresh, func(context.Context) (*nav.Tree, cache.Meta, error) {
		return nav.Filter(m.Tree, p, s.cfg.Filter), cache.MetaFor(f, m.Version), nil
	})
	if errors.Is(err, cache.ErrKeyTooLong) {
		s.logger.Warn(ctx, "navigation key too long; serving uncached",
			observe.F("menu_id", m.ID),
			observe.F("user_id", p.UserID),
		)
		tree, hit, err = nav.Filter(m.Tree, p, s.cfg.Filter), false, nil
	}
	if err != nil {
		return nil, fmt.Errorf("navigation: resolve %q: %w", m.ID, err)
	}

	s.recordUsage(m.ID, hit, s.now().Sub(start))

	ev := events.New(events.NavigationAccessed)
	ev.UserID, ev.TenantID, ev.Role = p.UserID, p.TenantID, p.Role
	ev.MenuID, ev.Version, ev.CacheHit = m.ID, m.Version, hit
	s.emit(ctx, ev)

	return &Resolution{MenuID: m.ID, Version: m.Version, Tree: tree, CacheHit: hit}, nil
}

// CanAccess reports whether p may see the node with nodeID. With an empty
// menuID every registered menu is searched in id order. It bypasses the
// cache.
func (s *Service) CanAccess(ctx context.Context, p nav.Principal, nodeID, menuID string) (bool, error) {
	var menus []*nav.Menu
	if menuID != "" {
		m, err := s.lookup(ctx, menuID)
		if err != nil {
			return false, err
		}
		menus = []*nav.Menu{m}
	} else {
		menus = s.Menus()
	}

	visible := s.cfg.Filter.Evaluator
	if visible == nil {
		visible = nav.Visible
	}
	for _, m := range menus {
		id, ok := m.Tree.Find(nodeID)
		if !ok {
			continue
		}
		allowed := visible(m.Tree.Node(id), p)

		ev := events.New(events.PermissionCheck)
		ev.UserID, ev.TenantID, ev.Role = p.UserID, p.TenantID, p.Role
		ev.MenuID, ev.NodeID, ev.Version, ev.Allowed = m.ID, nodeID, m.Version, allowed
		s.emit(ctx, ev)
		return allowed, nil
	}
	return false, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
}

func fingerprint(m *nav.Menu, p nav.Principal) cache.Fingerprint {
	return cache.Fingerprint{
		MenuID:   m.ID,
		UserID:   p.UserID,
		TenantID: p.TenantID,
		Role:     p.Role,
	}
}

// menuUsage accumulates per-menu resolution figures.
type menuUsage struct {
	resolutions int64
	hits        int64
	latency     time.Duration
	last        time.Time
}

func (s *Service) recordUsage(menuID string, hit bool, elapsed time.Duration) {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	u, ok := s.usage[menuID]
	if !ok {
		u = &menuUsage{}
		s.usage[menuID] = u
	}
	u.resolutions++
	if hit {
		u.hits++
	}
	u.latency += elapsed
	u.last = s.now()
}
