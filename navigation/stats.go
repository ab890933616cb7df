package navigation

import (
	"time"

	"github.com/jonwraymond/navcache/cache"
	"github.com/jonwraymond/navcache/health"
)

// MenuStats summarizes the resolutions of one menu.
type MenuStats struct {
	MenuID         string        `json:"menu_id"`
	Version        int64         `json:"version"`
	Resolutions    int64         `json:"resolutions"`
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	HitRatio       float64       `json:"hit_ratio"`
	AverageLatency time.Duration `json:"average_latency_ns"`
	LastResolved   time.Time     `json:"last_resolved,omitzero"`
}

// Stats is a point-in-time snapshot of a Service.
type Stats struct {
	Cache         cache.Stats `json:"cache"`
	Menus         []MenuStats `json:"menus"`
	PendingEvents int         `json:"pending_events"`
	LastSync      time.Time   `json:"last_sync,omitzero"`
}

// Statistics returns cache and per-menu figures. Per-menu hit ratios use
// the exact hit flag of each lookup.
func (s *Service) Statistics() Stats {
	st := Stats{Cache: s.store.Statistics()}

	menus := s.Menus()
	s.mu.RLock()
	st.LastSync = s.lastSync
	s.mu.RUnlock()

	s.usageMu.Lock()
	st.Menus = make([]MenuStats, 0, len(menus))
	for _, m := range menus {
		ms := MenuStats{MenuID: m.ID, Version: m.Version}
		if u, ok := s.usage[m.ID]; ok {
			ms.Resolutions = u.resolutions
			ms.Hits = u.hits
			ms.Misses = u.resolutions - u.hits
			ms.HitRatio = cache.HitRatio(ms.Hits, ms.Misses)
			ms.AverageLatency = u.latency / time.Duration(u.resolutions)
			ms.LastResolved = u.last
		}
		st.Menus = append(st.Menus, ms)
	}
	s.usageMu.Unlock()

	s.eventsMu.Lock()
	st.PendingEvents = len(s.pending)
	s.eventsMu.Unlock()
	return st
}

// Usage reports how full the cache is.
func (s *Service) Usage() health.Usage {
	p := s.store.Policy()
	return health.Usage{
		Entries:    s.store.Len(),
		MaxEntries: p.MaxEntries,
		Bytes:      s.store.Size(),
		MaxBytes:   p.MaxSize,
	}
}
