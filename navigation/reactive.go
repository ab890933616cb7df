package navigation

import (
	"context"
	"sort"

	"github.com/jonwraymond/navcache/cache"
	"github.com/jonwraymond/navcache/events"
	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/observe"
)

// OnPermissionsChanged drops every tree cached for userID across all menus,
// limited to tenantID when it is not empty. One CacheInvalidated event is
// emitted per affected menu. It returns the number of entries removed.
func (s *Service) OnPermissionsChanged(ctx context.Context, userID, tenantID string) int {
	reason := "permissions changed for user " + userID
	var n int
	if tenantID == "" {
		n = s.store.InvalidateTagAs(ctx, cache.KindPermission, cache.UserTag(userID), reason)
	} else {
		reason += " in tenant " + tenantID
		n = s.store.InvalidatePattern(ctx, cache.KindPermission, cache.UserPattern(userID, tenantID), reason)
	}
	s.logger.Info(ctx, "navigation invalidated after permission change",
		observe.F("user_id", userID),
		observe.F("tenant_id", tenantID),
		observe.F("removed", n),
	)
	return n
}

// OnTenantSwitched drops the trees cached for the user in oldTenantID and
// then resolves navigation for next so the first request in the new tenant
// is a hit. A failed pre-warm is logged; the invalidation always happens.
// It returns the number of entries removed.
func (s *Service) OnTenantSwitched(ctx context.Context, oldTenantID string, next nav.Principal) int {
	var n int
	if oldTenantID != "" {
		n = s.store.InvalidatePattern(ctx, cache.KindTenant,
			cache.UserPattern(next.UserID, oldTenantID),
			"user "+next.UserID+" left tenant "+oldTenantID)
	}

	if _, err := s.Resolve(ctx, next, ""); err != nil {
		s.logger.Warn(ctx, "navigation pre-warm after tenant switch failed",
			observe.F("user_id", next.UserID),
			observe.F("tenant_id", next.TenantID),
			observe.F("error", err),
		)
	}
	return n
}

func (s *Service) handlePermissionsChanged(ctx context.Context, ev events.Event) error {
	s.OnPermissionsChanged(ctx, ev.UserID, ev.TenantID)
	return nil
}

func (s *Service) handleTenantSwitched(ctx context.Context, ev events.Event) error {
	s.OnTenantSwitched(ctx, ev.PreviousTenantID, nav.Principal{
		UserID:      ev.UserID,
		TenantID:    ev.TenantID,
		Role:        ev.Role,
		Permissions: ev.Permissions,
		SystemAdmin: ev.SystemAdmin,
	})
	return nil
}

// InvalidateTag drops every tree carrying tag.
func (s *Service) InvalidateTag(ctx context.Context, tag, reason string) int {
	return s.store.InvalidateByTag(ctx, tag, reason)
}

// Invalidate drops every tree whose key matches the glob pattern.
func (s *Service) Invalidate(ctx context.Context, pattern, reason string) int {
	return s.store.Invalidate(ctx, pattern, reason)
}

// InvalidateTenant drops every tree computed in tenantID.
func (s *Service) InvalidateTenant(ctx context.Context, tenantID string) int {
	return s.store.InvalidateTenant(ctx, tenantID)
}

// InvalidateRole drops every tree computed for role.
func (s *Service) InvalidateRole(ctx context.Context, role string) int {
	return s.store.InvalidateRole(ctx, role)
}

// History returns the recorded invalidations, oldest first.
func (s *Service) History() []cache.InvalidationEvent {
	return s.store.History()
}

// onInvalidated turns a store invalidation into one CacheInvalidated event
// per affected menu.
func (s *Service) onInvalidated(ctx context.Context, inv cache.InvalidationEvent) {
	byMenu := make(map[string][]string)
	for _, key := range inv.Keys {
		f, ok := cache.ParseKey(key)
		if !ok {
			continue
		}
		byMenu[f.MenuID] = append(byMenu[f.MenuID], key)
	}
	ids := make([]string, 0, len(byMenu))
	for id := range byMenu {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ev := events.New(events.CacheInvalidated)
		ev.MenuID = id
		ev.AffectedIDs = byMenu[id]
		ev.Reason = inv.Reason
		if m, ok := s.Menu(id); ok {
			ev.Version = m.Version
		}
		s.emit(ctx, ev)
	}
}

// emit buffers ev and publishes it on the bus.
func (s *Service) emit(ctx context.Context, ev events.Event) {
	s.eventsMu.Lock()
	if over := len(s.pending) + 1 - s.cfg.EventBuffer; over > 0 {
		s.pending = append(s.pending[:0], s.pending[over:]...)
	}
	s.pending = append(s.pending, ev)
	s.eventsMu.Unlock()

	if s.bus != nil {
		_ = s.bus.Publish(ctx, ev)
	}
}

// DrainEvents returns and clears the buffered domain events, oldest first.
func (s *Service) DrainEvents() []events.Event {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}
