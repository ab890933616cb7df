package health

import (
	"context"
	"fmt"
)

// Usage is a snapshot of how full a bounded store is. Zero limits mean
// unbounded and are ignored.
type Usage struct {
	Entries    int
	MaxEntries int
	Bytes      int64
	MaxBytes   int64
}

// Ratio returns the fuller of the two bounds, in [0, +inf).
func (u Usage) Ratio() float64 {
	var r float64
	if u.MaxEntries > 0 {
		r = float64(u.Entries) / float64(u.MaxEntries)
	}
	if u.MaxBytes > 0 {
		if b := float64(u.Bytes) / float64(u.MaxBytes); b > r {
			r = b
		}
	}
	return r
}

// CapacityConfig sets the fill ratios that degrade the status.
type CapacityConfig struct {
	// WarningThreshold triggers degraded. Default: 0.8.
	WarningThreshold float64 `yaml:"warning_threshold"`

	// CriticalThreshold triggers unhealthy. Default: 0.95.
	CriticalThreshold float64 `yaml:"critical_threshold"`
}

// CapacityChecker reports a store as degraded or unhealthy as it fills.
type CapacityChecker struct {
	name   string
	config CapacityConfig
	usage  func() Usage
}

// NewCapacityChecker creates a checker that samples usage on every check.
func NewCapacityChecker(name string, config CapacityConfig, usage func() Usage) *CapacityChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold > 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold
	}
	return &CapacityChecker{name: name, config: config, usage: usage}
}

func (c *CapacityChecker) Name() string { return c.name }

func (c *CapacityChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	u := c.usage()
	ratio := u.Ratio()
	details := map[string]any{
		"entries":       u.Entries,
		"max_entries":   u.MaxEntries,
		"bytes":         u.Bytes,
		"max_bytes":     u.MaxBytes,
		"usage_percent": ratio * 100,
	}

	switch {
	case ratio >= c.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("%s usage critical: %.1f%%", c.name, ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= c.config.WarningThreshold:
		return Degraded(fmt.Sprintf("%s usage high: %.1f%%", c.name, ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%s usage normal: %.1f%%", c.name, ratio*100)).WithDetails(details)
	}
}
