package cache

import (
	"errors"
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := Policy{DefaultTTL: 5 * time.Minute, MaxTTL: time.Hour}
	tests := []struct {
		override time.Duration
		want     time.Duration
	}{
		{0, 5 * time.Minute},
		{-time.Second, 5 * time.Minute},
		{10 * time.Minute, 10 * time.Minute},
		{2 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if got := p.EffectiveTTL(tt.override); got != tt.want {
			t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
		}
	}
	if got := (Policy{DefaultTTL: time.Minute}).EffectiveTTL(48 * time.Hour); got != 48*time.Hour {
		t.Errorf("no MaxTTL should not clamp, got %v", got)
	}
}

func TestPolicy_ShouldCache(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want bool
	}{
		{0, false},
		{time.Minute, true},
	}
	for _, tt := range tests {
		if got := (Policy{DefaultTTL: tt.ttl}).ShouldCache(); got != tt.want {
			t.Errorf("ShouldCache with DefaultTTL %v = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Policy)
		ok   bool
	}{
		{"default", func(*Policy) {}, true},
		{"negative ttl", func(p *Policy) { p.DefaultTTL = -1 }, false},
		{"negative entries", func(p *Policy) { p.MaxEntries = -1 }, false},
		{"entry larger than store", func(p *Policy) { p.MaxSize = 10; p.MaxEntrySize = 11 }, false},
		{"unbounded", func(p *Policy) { p.MaxSize = 0; p.MaxEntries = 0 }, true},
		{"bad strategy", func(p *Policy) { p.Strategy = "random" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mut(&p)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidPolicy) {
				t.Fatalf("err = %v, want ErrInvalidPolicy", err)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": Hybrid, "LRU": LRU, " lfu ": LFU, "ttl": TTL, "hybrid": Hybrid} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStrategy("mru"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("err = %v, want ErrUnknownStrategy", err)
	}
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	if _, err := New[int](Policy{MaxEntries: -1}); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("err = %v, want ErrInvalidPolicy", err)
	}
}
