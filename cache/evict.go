package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/navcache/observe"
)

// ensureCapacity makes room for an entry of size incoming: it purges
// expired entries, then evicts by strategy until both the entry and size
// bounds hold. An empty store is never evicted further. Callers hold s.mu.
func (s *Store[V]) ensureCapacity(ctx context.Context, now time.Time, incoming int64) (expired, evicted int) {
	expired = s.purgeExpired(now)
	for len(s.entries) > 0 && s.overCapacity(incoming) {
		key, ok := s.victim(now)
		if !ok {
			break
		}
		s.remove(key)
		evicted++
		s.opts.logger.Debug(ctx, "cache entry evicted",
			observe.F("key", key),
			observe.F("strategy", string(s.policy.Strategy)),
		)
	}
	return expired, evicted
}

func (s *Store[V]) overCapacity(incoming int64) bool {
	if s.policy.MaxEntries > 0 && len(s.entries) >= s.policy.MaxEntries {
		return true
	}
	return s.policy.MaxSize > 0 && s.size+incoming > s.policy.MaxSize
}

// victim selects the key to evict: the lowest eviction score, ties going
// to the entry inserted first. LRU takes the least recently accessed key.
func (s *Store[V]) victim(now time.Time) (string, bool) {
	if s.policy.Strategy == LRU {
		key, _, ok := s.order.GetOldest()
		return key, ok
	}

	var best *Entry[V]
	var bestScore float64
	for _, e := range s.entries {
		score := s.evictionScore(e, now)
		if best == nil || score < bestScore || (score == bestScore && e.seq < best.seq) {
			best, bestScore = e, score
		}
	}
	if best == nil {
		return "", false
	}
	return best.Key, true
}

// evictionScore ranks entries for eviction; the lowest score goes first.
func (s *Store[V]) evictionScore(e *Entry[V], now time.Time) float64 {
	switch s.policy.Strategy {
	case LFU:
		return float64(e.AccessCount)
	case TTL:
		return float64(e.CachedAt.UnixNano())
	default:
		return hybridScore(e.CachedAt, e.AccessCount, now)
	}
}

// hybridScore is age divided by access frequency, where frequency is
// accesses per hour of age (age floored at one hour). Fresh entries score
// lowest and are evicted first.
func hybridScore(cachedAt time.Time, accesses int64, now time.Time) float64 {
	age := now.Sub(cachedAt).Hours()
	if age < 0 {
		age = 0
	}
	if accesses < 1 {
		accesses = 1
	}
	hours := age
	if hours < 1 {
		hours = 1
	}
	frequency := float64(accesses) / hours
	return age / frequency
}
