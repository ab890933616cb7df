// Package cache provides the bounded store that holds filtered navigation
// trees.
//
// A Store keeps entries keyed by an opaque string, usually built with
// Fingerprint.Key. Each entry carries the identity it was computed for,
// the menu version it was derived from, free-form tags, and access
// metadata used by the eviction strategies (lru, lfu, ttl, hybrid).
//
// Bulk invalidation goes through the tag index when the caller knows a tag
// (user:<id>, tenant:<id>, menu:<id>) and falls back to glob matching over
// keys for administrative patterns. Every invalidation is recorded in a
// bounded history.
//
// All entry state (map, tag index, access order) lives under one mutex, so
// an invalidation that completes before a Get is always visible to it.
package cache
