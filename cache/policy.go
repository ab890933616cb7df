package cache

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects the entry evicted when the store is full.
type Strategy string

const (
	// LRU evicts the least recently accessed entry.
	LRU Strategy = "lru"
	// LFU evicts the entry with the fewest accesses.
	LFU Strategy = "lfu"
	// TTL evicts the entry cached earliest, ignoring access.
	TTL Strategy = "ttl"
	// Hybrid evicts the entry that is oldest relative to how often it is used.
	Hybrid Strategy = "hybrid"
)

// ParseStrategy parses a strategy name. The empty string selects Hybrid.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return Hybrid, nil
	case LRU, LFU, TTL, Hybrid:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// UnmarshalText lets strategies be decoded from configuration files.
func (s *Strategy) UnmarshalText(b []byte) error {
	st, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Policy configures a Store.
type Policy struct {
	// DefaultTTL applies when Set is called without a TTL.
	// If zero, Set stores nothing.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// MaxTTL clamps per-entry TTLs. Zero means no maximum.
	MaxTTL time.Duration `yaml:"max_ttl"`

	// MaxEntries bounds the entry count. Zero means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// MaxSize bounds the summed approximate size in bytes. Zero means unbounded.
	MaxSize int64 `yaml:"max_size"`

	// MaxEntrySize rejects single values larger than this. Zero means no limit.
	MaxEntrySize int64 `yaml:"max_entry_size"`

	Strategy Strategy `yaml:"strategy"`

	// SweepInterval is the period of the background expiry sweep.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// HistoryLimit caps the invalidation history; oldest records drop first.
	HistoryLimit int `yaml:"history_limit"`

	// TopN is the number of most-accessed entries reported by Statistics.
	TopN int `yaml:"top_n"`
}

// DefaultPolicy returns the default store policy.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:    5 * time.Minute,
		MaxTTL:        1 * time.Hour,
		MaxEntries:    10000,
		MaxSize:       64 << 20,
		MaxEntrySize:  1 << 20,
		Strategy:      Hybrid,
		SweepInterval: 5 * time.Minute,
		HistoryLimit:  1000,
		TopN:          10,
	}
}

// Validate reports whether the policy is internally consistent.
func (p Policy) Validate() error {
	switch {
	case p.DefaultTTL < 0 || p.MaxTTL < 0:
		return fmt.Errorf("%w: negative ttl", ErrInvalidPolicy)
	case p.MaxEntries < 0 || p.MaxSize < 0 || p.MaxEntrySize < 0:
		return fmt.Errorf("%w: negative limit", ErrInvalidPolicy)
	case p.MaxSize > 0 && p.MaxEntrySize > p.MaxSize:
		return fmt.Errorf("%w: max entry size %d exceeds max size %d", ErrInvalidPolicy, p.MaxEntrySize, p.MaxSize)
	case p.SweepInterval < 0:
		return fmt.Errorf("%w: negative sweep interval", ErrInvalidPolicy)
	case p.HistoryLimit < 0 || p.TopN < 0:
		return fmt.Errorf("%w: negative history limit or top n", ErrInvalidPolicy)
	}
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return nil
}

// ShouldCache reports whether Set stores anything without an explicit TTL.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

// withDefaults fills zero-valued housekeeping fields.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Strategy == "" {
		p.Strategy = def.Strategy
	}
	if p.SweepInterval == 0 {
		p.SweepInterval = def.SweepInterval
	}
	if p.HistoryLimit == 0 {
		p.HistoryLimit = def.HistoryLimit
	}
	if p.TopN == 0 {
		p.TopN = def.TopN
	}
	return p
}
