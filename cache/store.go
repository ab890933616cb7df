package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/navcache/observe"
)

// Store is a bounded in-memory cache of V values with tag-based and
// pattern-based invalidation.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use. Entry state is
// guarded by a single mutex shared with the background sweep.
// - Ownership: values are stored as given; callers must not mutate a value
// after Set or after receiving it from Get.
// - Errors: Get never errors; it returns (zero, false) on miss.
type Store[V any] struct {
	policy Policy
	opts   options

	mu      sync.Mutex
	entries map[string]*Entry[V]
	tags    map[string]map[string]struct{}
	order   *simplelru.LRU[string, struct{}] // oldest access first
	seq     uint64
	size    int64
	history *history

	counters counters
	group    singleflight.Group

	sweepMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	expirations   atomic.Int64
	invalidations atomic.Int64
	rejections    atomic.Int64
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.expirations.Store(0)
	c.invalidations.Store(0)
	c.rejections.Store(0)
}

// New creates a store. Zero-valued housekeeping fields of policy
// (Strategy, SweepInterval, HistoryLimit, TopN) take their defaults.
func New[V any](policy Policy, opts ...Option) (*Store[V], error) {
	policy = policy.withDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// The access-order list never evicts on its own; capacity is enforced
	// before every insert.
	capacity := math.MaxInt32
	if policy.MaxEntries > 0 {
		capacity = policy.MaxEntries + 1
	}
	order, err := simplelru.NewLRU[string, struct{}](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: access order: %w", err)
	}

	return &Store[V]{
		policy:  policy,
		opts:    o,
		entries: make(map[string]*Entry[V]),
		tags:    make(map[string]map[string]struct{}),
		order:   order,
		history: newHistory(policy.HistoryLimit),
	}, nil
}

// Policy returns the effective policy.
func (s *Store[V]) Policy() Policy {
	return s.policy
}

// Get returns a copy of the entry for key. Expired entries are removed and
// reported as a miss.
func (s *Store[V]) Get(ctx context.Context, key string) (Entry[V], bool) {
	return s.GetIf(ctx, key, nil)
}

// GetIf is Get with a freshness check. When fresh reports false for a live
// entry, the entry is removed and the lookup counts as a miss.
func (s *Store[V]) GetIf(ctx context.Context, key string, fresh func(Entry[V]) bool) (Entry[V], bool) {
	now := s.opts.now()

	s.mu.Lock()
	e, ok := s.entries[key]
	var expired, stale bool
	switch {
	case !ok:
	case e.Expired(now):
		s.remove(key)
		expired = true
	case fresh != nil && !fresh(*e):
		s.remove(key)
		stale = true
	default:
		e.LastAccessed = now
		e.AccessCount++
		s.order.Get(key)
		out := e.snapshot()
		s.mu.Unlock()

		s.counters.hits.Add(1)
		s.opts.metrics.RecordCacheEvent(ctx, observe.CacheHit, 1)
		return out, true
	}
	s.mu.Unlock()

	s.counters.misses.Add(1)
	s.opts.metrics.RecordCacheEvent(ctx, observe.CacheMiss, 1)
	if expired {
		s.counters.expirations.Add(1)
		s.opts.metrics.RecordCacheEvent(ctx, observe.CacheExpiration, 1)
	}
	if stale {
		s.counters.evictions.Add(1)
		s.opts.metrics.RecordCacheEvent(ctx, observe.CacheEviction, 1)
		s.opts.logger.Debug(ctx, "cache entry stale", observe.F("key", key))
	}
	var zero Entry[V]
	return zero, false
}

// Set stores value under key, replacing any existing entry. Values larger
// than Policy.MaxEntrySize are rejected with ErrEntryTooLarge and not stored.
// Without a positive Meta.TTL, nothing is stored unless Policy.ShouldCache.
func (s *Store[V]) Set(ctx context.Context, key string, value V, meta Meta) error {
	_, err := s.set(ctx, key, value, meta, true)
	return err
}

func (s *Store[V]) set(ctx context.Context, key string, value V, meta Meta, replace bool) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	if meta.TTL <= 0 && !s.policy.ShouldCache() {
		return false, nil
	}
	ttl := s.policy.EffectiveTTL(meta.TTL)
	size, err := s.opts.sizer(value)
	if err != nil {
		return false, fmt.Errorf("cache: measure %q: %w", key, err)
	}
	if size < 0 {
		return false, fmt.Errorf("cache: measure %q: negative size %d", key, size)
	}
	if s.policy.MaxEntrySize > 0 && size > s.policy.MaxEntrySize {
		s.counters.rejections.Add(1)
		s.opts.metrics.RecordCacheEvent(ctx, observe.CacheRejection, 1)
		s.opts.logger.Warn(ctx, "cache entry rejected",
			observe.F("key", key),
			observe.F("size", size),
			observe.F("max_entry_size", s.policy.MaxEntrySize),
		)
		return false, fmt.Errorf("%w: %d > %d bytes", ErrEntryTooLarge, size, s.policy.MaxEntrySize)
	}

	now := s.opts.now()
	e := &Entry[V]{
		Key:          key,
		Value:        value,
		UserID:       meta.UserID,
		TenantID:     meta.TenantID,
		Role:         meta.Role,
		MenuID:       meta.MenuID,
		Version:      meta.Version,
		Tags:         normalizeTags(meta.Tags),
		CachedAt:     now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
		AccessCount:  1,
		Size:         size,
	}

	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		if !replace && !old.Expired(now) {
			s.mu.Unlock()
			return false, nil
		}
		s.remove(key)
	}
	expired, evicted := s.ensureCapacity(ctx, now, size)
	s.seq++
	e.seq = s.seq
	s.entries[key] = e
	for _, tag := range e.Tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	s.order.Add(key, struct{}{})
	s.size += size
	s.mu.Unlock()

	s.recordRemovals(ctx, expired, evicted)
	return true, nil
}

// Delete removes key and reports whether it was present.
func (s *Store[V]) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(key) != nil
}

// Clear drops every entry and tag and resets all counters. The
// invalidation history is kept.
func (s *Store[V]) Clear(_ context.Context) {
	s.mu.Lock()
	s.entries = make(map[string]*Entry[V])
	s.tags = make(map[string]map[string]struct{})
	s.order.Purge()
	s.size = 0
	s.counters.reset()
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired entries not
// yet swept.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Size returns the summed size of the live entries in bytes.
func (s *Store[V]) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Has reports whether a live entry exists for key without touching its
// access metadata or the hit counters.
func (s *Store[V]) Has(key string) bool {
	now := s.opts.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && !e.Expired(now)
}

// PurgeExpired removes every expired entry and returns how many it removed.
func (s *Store[V]) PurgeExpired(ctx context.Context) int {
	now := s.opts.now()
	s.mu.Lock()
	n := s.purgeExpired(now)
	s.mu.Unlock()
	s.recordRemovals(ctx, n, 0)
	return n
}

// WarmItem is one precomputed value for WarmUp.
type WarmItem[V any] struct {
	Key   string
	Value V
	Meta  Meta
}

// WarmUp inserts items whose keys are not already live. It returns the
// number inserted. Oversized items are skipped; other failures are joined
// into the returned error.
func (s *Store[V]) WarmUp(ctx context.Context, items []WarmItem[V]) (int, error) {
	var (
		inserted int
		errs     []error
	)
	for _, it := range items {
		ok, err := s.set(ctx, it.Key, it.Value, it.Meta, false)
		switch {
		case errors.Is(err, ErrEntryTooLarge):
		case err != nil:
			errs = append(errs, err)
		case ok:
			inserted++
		}
	}
	return inserted, errors.Join(errs...)
}

// remove deletes key from the entry map, the tag index and the access
// order. Callers hold s.mu.
func (s *Store[V]) remove(key string) *Entry[V] {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	delete(s.entries, key)
	for _, tag := range e.Tags {
		if keys, ok := s.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.tags, tag)
			}
		}
	}
	s.order.Remove(key)
	s.size -= e.Size
	return e
}

// purgeExpired removes expired entries. Callers hold s.mu.
func (s *Store[V]) purgeExpired(now time.Time) int {
	var n int
	for key, e := range s.entries {
		if e.Expired(now) {
			s.remove(key)
			n++
		}
	}
	return n
}

func (s *Store[V]) recordRemovals(ctx context.Context, expired, evicted int) {
	if expired > 0 {
		s.counters.expirations.Add(int64(expired))
		s.opts.metrics.RecordCacheEvent(ctx, observe.CacheExpiration, int64(expired))
	}
	if evicted > 0 {
		s.counters.evictions.Add(int64(evicted))
		s.opts.metrics.RecordCacheEvent(ctx, observe.CacheEviction, int64(evicted))
	}
}
