package cache

import (
	"sort"
	"time"
)

// EntryStat summarizes one entry in Stats.TopEntries.
type EntryStat struct {
	Key          string    `json:"key"`
	MenuID       string    `json:"menu_id,omitempty"`
	AccessCount  int64     `json:"access_count"`
	Size         int64     `json:"size"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Stats is a point-in-time snapshot of a Store.
type Stats struct {
	Entries   int   `json:"entries"`
	TotalSize int64 `json:"total_size"`

	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`

	Evictions     int64 `json:"evictions"`
	Expirations   int64 `json:"expirations"`
	Invalidations int64 `json:"invalidations"`
	Rejections    int64 `json:"rejections"`

	Oldest     time.Time     `json:"oldest,omitzero"`
	Newest     time.Time     `json:"newest,omitzero"`
	AverageAge time.Duration `json:"average_age"`

	TopEntries []EntryStat `json:"top_entries"`
	Strategy   Strategy    `json:"strategy"`
}

// HitRatio returns hits/(hits+misses), or 0 before any lookup.
func HitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total <= 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Statistics recomputes entry and size figures from the current state.
// Counters are cumulative since creation or the last Clear.
func (s *Store[V]) Statistics() Stats {
	now := s.opts.now()
	hits := s.counters.hits.Load()
	misses := s.counters.misses.Load()

	st := Stats{
		Hits:          hits,
		Misses:        misses,
		HitRatio:      HitRatio(hits, misses),
		Evictions:     s.counters.evictions.Load(),
		Expirations:   s.counters.expirations.Load(),
		Invalidations: s.counters.invalidations.Load(),
		Rejections:    s.counters.rejections.Load(),
		Strategy:      s.policy.Strategy,
		TopEntries:    []EntryStat{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st.Entries = len(s.entries)
	var totalAge time.Duration
	all := make([]EntryStat, 0, len(s.entries))
	for _, e := range s.entries {
		st.TotalSize += e.Size
		if st.Oldest.IsZero() || e.CachedAt.Before(st.Oldest) {
			st.Oldest = e.CachedAt
		}
		if e.CachedAt.After(st.Newest) {
			st.Newest = e.CachedAt
		}
		totalAge += now.Sub(e.CachedAt)
		all = append(all, EntryStat{
			Key:          e.Key,
			MenuID:       e.MenuID,
			AccessCount:  e.AccessCount,
			Size:         e.Size,
			LastAccessed: e.LastAccessed,
		})
	}
	if st.Entries > 0 {
		st.AverageAge = totalAge / time.Duration(st.Entries)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].AccessCount != all[j].AccessCount {
			return all[i].AccessCount > all[j].AccessCount
		}
		return all[i].Key < all[j].Key
	})
	if len(all) > s.policy.TopN {
		all = all[:s.policy.TopN]
	}
	st.TopEntries = append(st.TopEntries, all...)
	return st
}
