package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/navcache/auth"
	"github.com/jonwraymond/navcache/health"
	"github.com/jonwraymond/navcache/navigation"
	"github.com/jonwraymond/navcache/observe"
	"github.com/jonwraymond/navcache/resilience"
	"github.com/jonwraymond/navcache/secret"
)

var (
	ErrMissingAddr       = errors.New("config: server address is required")
	ErrMissingMenus      = errors.New("config: menus path is required")
	ErrMissingSigningKey = errors.New("config: auth signing key is required")
	ErrInvalidTimeout    = errors.New("config: timeouts must not be negative")
	ErrInvalidSchedule   = errors.New("config: invalid sync schedule")
)

// ServiceName names the daemon in telemetry.
const ServiceName = "navd"

// Config is the navd configuration file.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Observe    observe.Config    `yaml:"observe"`
	Navigation navigation.Config `yaml:"navigation"`
	Menus      MenusConfig       `yaml:"menus"`
	Source     SourceConfig      `yaml:"source"`
	Auth       AuthConfig        `yaml:"auth"`
	Health     HealthConfig      `yaml:"health"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MetricsPath serves the prometheus registry. Empty disables it.
	MetricsPath string `yaml:"metrics_path"`
}

// MenusConfig locates the menu definitions.
type MenusConfig struct {
	// Path is a YAML file or a directory of them.
	Path string `yaml:"path"`

	// Watch reloads menus when the files change.
	Watch bool `yaml:"watch"`

	// SyncSchedule is a cron spec, such as "@every 5m" or "*/10 * * * *",
	// on which the registry is re-synced with the source. Empty disables it.
	SyncSchedule string `yaml:"sync_schedule"`
}

// SourceConfig guards menu source calls.
type SourceConfig struct {
	Retry   resilience.RetryConfig          `yaml:"retry"`
	Breaker resilience.CircuitBreakerConfig `yaml:"breaker"`
	Timeout time.Duration                   `yaml:"timeout"`
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	JWT auth.JWTConfig `yaml:"jwt"`

	// SigningKey verifies HS256 tokens. It usually holds a
	// secretref:<provider>:<ref> or ${VAR} reference.
	SigningKey string `yaml:"signing_key"`

	RBAC auth.RBACConfig `yaml:"rbac"`
}

// HealthConfig configures health checks.
type HealthConfig struct {
	Timeout  time.Duration         `yaml:"timeout"`
	Capacity health.CapacityConfig `yaml:"capacity"`
}

// Default returns the configuration used for omitted fields.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MetricsPath:     "/metrics",
		},
		Observe:    observe.DefaultConfig(ServiceName),
		Navigation: navigation.DefaultConfig(),
		Menus:      MenusConfig{Path: "menus.yaml"},
		Source: SourceConfig{
			Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: true},
			Breaker: resilience.CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
			Timeout: 2 * time.Second,
		},
		Health: HealthConfig{
			Timeout:  5 * time.Second,
			Capacity: health.CapacityConfig{WarningThreshold: 0.8, CriticalThreshold: 0.95},
		},
	}
}

// Load reads the file at path. See Parse.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f, resolver)
}

// Parse decodes r over Default, resolves secrets with resolver, and
// validates. Unknown keys are rejected. A nil resolver only expands the
// environment.
func Parse(ctx context.Context, r io.Reader, resolver *secret.Resolver) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode: %w", err)
		}
	}

	if err := resolver.ResolveAll(ctx,
		&cfg.Auth.SigningKey,
		&cfg.Auth.JWT.Issuer,
		&cfg.Auth.JWT.Audience,
		&cfg.Menus.Path,
		&cfg.Server.Addr,
	); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrMissingAddr
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 ||
		c.Server.ShutdownTimeout < 0 || c.Source.Timeout < 0 || c.Health.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Menus.Path == "" {
		return ErrMissingMenus
	}
	if c.Menus.SyncSchedule != "" {
		if _, err := cron.ParseStandard(c.Menus.SyncSchedule); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}
	if c.Auth.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if err := c.Observe.Validate(); err != nil {
		return err
	}
	if err := c.Navigation.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Auth.RBAC.Validate(); err != nil {
		return err
	}
	return nil
}
