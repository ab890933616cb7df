package cache

import (
	"encoding/json"
	"sort"
	"time"
)

// Entry is a cached value with its metadata. Entries returned by the store
// are copies; mutating one does not affect the store.
type Entry[V any] struct {
	Key   string
	Value V

	UserID   string
	TenantID string
	Role     string
	MenuID   string

	// Version is the menu version the value was computed from.
	Version int64

	Tags []string

	CachedAt     time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
	AccessCount  int64

	// Size is the approximate size of Value in bytes.
	Size int64

	seq uint64 // insertion order
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry[V]) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func (e *Entry[V]) snapshot() Entry[V] {
	out := *e
	out.Tags = append([]string(nil), e.Tags...)
	return out
}

// Meta describes a value being stored.
type Meta struct {
	// TTL overrides Policy.DefaultTTL; it is clamped to Policy.MaxTTL.
	TTL time.Duration

	Tags []string

	UserID   string
	TenantID string
	Role     string
	MenuID   string
	Version  int64
}

// MetaFor returns the metadata for a fingerprint: its identity fields and tags.
func MetaFor(f Fingerprint, version int64) Meta {
	return Meta{
		Tags:     f.Tags(),
		UserID:   f.UserID,
		TenantID: f.TenantID,
		Role:     f.Role,
		MenuID:   f.MenuID,
		Version:  version,
	}
}

// Sizer reports an approximate byte size for values that know their own.
type Sizer interface {
	Size() int64
}

// SizeOf approximates the size of v: Sizer values report it directly,
// everything else is measured by its JSON encoding.
func SizeOf(v any) (int64, error) {
	if s, ok := v.(Sizer); ok {
		return s.Size(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
