package cache

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/navcache/observe"
)

// InvalidationKind is the cause recorded for an invalidation.
type InvalidationKind string

const (
	KindUser       InvalidationKind = "user"
	KindTenant     InvalidationKind = "tenant"
	KindRole       InvalidationKind = "role"
	KindMenu       InvalidationKind = "menu"
	KindPermission InvalidationKind = "permission"
	KindGlobal     InvalidationKind = "global"
	KindManual     InvalidationKind = "manual"
)

// InvalidationEvent is an audit record of one invalidation.
type InvalidationEvent struct {
	ID        string           `json:"id"`
	Kind      InvalidationKind `json:"kind"`
	Pattern   string           `json:"pattern,omitempty"`
	Tag       string           `json:"tag,omitempty"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
	Keys      []string         `json:"keys"`
}

// Invalidate removes every key matching the glob pattern ('*' matches any
// run of characters) and records a manual invalidation.
func (s *Store[V]) Invalidate(ctx context.Context, pattern, reason string) int {
	return s.InvalidatePattern(ctx, KindManual, pattern, reason)
}

// InvalidatePattern removes every key matching pattern and records an
// invalidation of the given kind. It scans all keys; prefer InvalidateByTag
// on hot paths.
func (s *Store[V]) InvalidatePattern(ctx context.Context, kind InvalidationKind, pattern, reason string) int {
	re := globRegexp(pattern)

	s.mu.Lock()
	var keys []string
	for key := range s.entries {
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		s.remove(key)
	}
	ev := s.record(kind, pattern, "", reason, keys)
	s.mu.Unlock()

	s.afterInvalidate(ctx, ev)
	return len(keys)
}

// InvalidateByTag removes every key carrying tag using the tag index. The
// recorded kind is derived from the tag prefix (user:, tenant:, role:, menu:).
func (s *Store[V]) InvalidateByTag(ctx context.Context, tag, reason string) int {
	return s.InvalidateTagAs(ctx, tagKind(tag), tag, reason)
}

// InvalidateTagAs is InvalidateByTag with an explicit recorded kind.
func (s *Store[V]) InvalidateTagAs(ctx context.Context, kind InvalidationKind, tag, reason string) int {
	s.mu.Lock()
	indexed := s.tags[tag]
	keys := make([]string, 0, len(indexed))
	for key := range indexed {
		keys = append(keys, key)
	}
	for _, key := range keys {
		s.remove(key)
	}
	ev := s.record(kind, "", tag, reason, keys)
	s.mu.Unlock()

	s.afterInvalidate(ctx, ev)
	return len(keys)
}

// InvalidateUser removes the entries computed for userID in tenantID, or in
// every tenant when tenantID is empty.
func (s *Store[V]) InvalidateUser(ctx context.Context, userID, tenantID string) int {
	reason := "user " + userID + " invalidated"
	if tenantID != "" {
		reason += " in tenant " + tenantID
	}
	return s.InvalidatePattern(ctx, KindUser, UserPattern(userID, tenantID), reason)
}

// InvalidateTenant removes every entry computed in tenantID.
func (s *Store[V]) InvalidateTenant(ctx context.Context, tenantID string) int {
	return s.InvalidatePattern(ctx, KindTenant, TenantPattern(tenantID), "tenant "+tenantID+" invalidated")
}

// InvalidateRole removes every entry computed for role.
func (s *Store[V]) InvalidateRole(ctx context.Context, role string) int {
	return s.InvalidatePattern(ctx, KindRole, RolePattern(role), "role "+role+" invalidated")
}

// InvalidateAll removes every entry and records a global invalidation.
// Counters are not reset; use Clear for that.
func (s *Store[V]) InvalidateAll(ctx context.Context, reason string) int {
	return s.InvalidatePattern(ctx, KindGlobal, "*", reason)
}

// History returns the recorded invalidations, oldest first.
func (s *Store[V]) History() []InvalidationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.list()
}

// record appends an invalidation event. Callers hold s.mu.
func (s *Store[V]) record(kind InvalidationKind, pattern, tag, reason string, keys []string) InvalidationEvent {
	sort.Strings(keys)
	ev := InvalidationEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Pattern:   pattern,
		Tag:       tag,
		Reason:    reason,
		Timestamp: s.opts.now(),
		Keys:      append([]string{}, keys...),
	}
	s.history.add(ev)
	return ev
}

func (s *Store[V]) afterInvalidate(ctx context.Context, ev InvalidationEvent) {
	n := int64(len(ev.Keys))
	s.counters.invalidations.Add(n)
	s.opts.metrics.RecordCacheEvent(ctx, observe.CacheInvalidation, n)
	s.opts.logger.Debug(ctx, "cache invalidated",
		observe.F("kind", string(ev.Kind)),
		observe.F("pattern", ev.Pattern),
		observe.F("tag", ev.Tag),
		observe.F("removed", n),
	)
	if s.opts.onInvalidate != nil {
		s.opts.onInvalidate(ctx, ev)
	}
}

func tagKind(tag string) InvalidationKind {
	prefix, _, ok := strings.Cut(tag, ":")
	if !ok {
		return KindManual
	}
	switch InvalidationKind(prefix) {
	case KindUser, KindTenant, KindRole, KindMenu:
		return InvalidationKind(prefix)
	default:
		return KindManual
	}
}

// globRegexp compiles a key glob into an anchored expression. Only '*' is
// special; everything else matches literally.
func globRegexp(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// history is a fixed-capacity ring of invalidation events.
type history struct {
	buf   []InvalidationEvent
	start int
	n     int
}

func newHistory(limit int) *history {
	return &history{buf: make([]InvalidationEvent, limit)}
}

func (h *history) add(ev InvalidationEvent) {
	if len(h.buf) == 0 {
		return
	}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = ev
		h.n++
		return
	}
	h.buf[h.start] = ev
	h.start = (h.start + 1) % len(h.buf)
}

func (h *history) list() []InvalidationEvent {
	out := make([]InvalidationEvent, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
