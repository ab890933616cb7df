package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/navcache/cache"
	"github.com/jonwraymond/navcache/events"
	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/observe"
)

// Config configures a Service.
type Config struct {
	// Cache bounds the store of filtered trees.
	Cache cache.Policy `yaml:"cache"`

	// Filter is applied to every resolution.
	Filter nav.FilterOptions `yaml:"filter"`

	// EventBuffer caps the pending event buffer; the oldest events are
	// dropped first. Default: 1000.
	EventBuffer int `yaml:"event_buffer"`

	// WarmConcurrency bounds the goroutines used by WarmUp. Default: 8.
	WarmConcurrency int `yaml:"warm_concurrency"`
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		Cache:           cache.DefaultPolicy(),
		Filter:          nav.DefaultFilterOptions(),
		EventBuffer:     1000,
		WarmConcurrency: 8,
	}
}

func (c Config) withDefaults() Config {
	if c.EventBuffer <= 0 {
		c.EventBuffer = 1000
	}
	if c.WarmConcurrency <= 0 {
		c.WarmConcurrency = 8
	}
	if c.Filter.MaxDepth <= 0 {
		c.Filter.MaxDepth = nav.DefaultMaxDepth
	}
	return c
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. It is also handed to the store.
func WithLogger(l observe.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMiddleware instruments resolutions. Its metrics sink also receives
// the store's cache events.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Service) {
		if mw != nil {
			s.mw = mw
		}
	}
}

// WithBus publishes domain events on bus and, once started, reacts to
// permission and tenant events received from it.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithSource sets the collaborator consulted by Sync and for menus missing
// from the registry.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithClock overrides the time source for the service and its store.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service resolves navigation for principals.
//
// Contract:
// - Concurrency: all methods are safe for concurrent use.
// - Ownership: returned trees are shared, immutable snapshots.
// - Errors: a principal without any menu gets ErrNoNavigation.
type Service struct {
	cfg    Config
	store  *cache.Store[*nav.Tree]
	source Source
	bus    *events.Bus
	logger observe.Logger
	mw     *observe.Middleware
	now    func() time.Time

	mu       sync.RWMutex
	menus    map[string]*nav.Menu
	lastSync time.Time
	syncErr  error

	usageMu sync.Mutex
	usage   map[string]*menuUsage

	eventsMu sync.Mutex
	pending  []events.Event

	lifeMu  sync.Mutex
	running bool
	unsubs  []func()
}

// New creates a service with its own cache store.
func New(cfg Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:    cfg.withDefaults(),
		logger: observe.NopLogger(),
		mw:     observe.NopMiddleware(),
		now:    time.Now,
		menus:  make(map[string]*nav.Menu),
		usage:  make(map[string]*menuUsage),
	}
	for _, opt := range opts {
		opt(s)
	}

	store, err := cache.New[*nav.Tree](s.cfg.Cache,
		cache.WithLogger(s.logger),
		cache.WithMetrics(s.mw.Metrics()),
		cache.WithClock(s.now),
		cache.WithInvalidationHook(s.onInvalidated),
	)
	if err != nil {
		return nil, err
	}
	s.store = store
	return s, nil
}

// Store returns the underlying cache.
func (s *Service) Store() *cache.Store[*nav.Tree] {
	return s.store
}

// Register adds or replaces a menu. A replacement whose version does not
// advance is assigned the next version. Replacing a menu invalidates every
// tree cached for it. Registering the same menu value again does nothing.
func (s *Service) Register(ctx context.Context, m *nav.Menu) error {
	if m == nil || m.ID == "" {
		return ErrInvalidMenu
	}
	next := *m
	if next.Tree == nil {
		next.Tree = &nav.Tree{}
	}

	s.mu.Lock()
	prev, existed := s.menus[next.ID]
	if existed && *prev == next {
		s.mu.Unlock()
		return nil
	}
	if existed && next.Version <= prev.Version {
		next.Version = prev.Version + 1
	}
	if next.Version <= 0 {
		next.Version = 1
	}
	s.menus[next.ID] = &next
	s.mu.Unlock()

	s.logger.Info(ctx, "menu registered",
		observe.F("menu_id", next.ID),
		observe.F("version", next.Version),
		observe.F("scope", string(next.Scope)),
	)
	if existed {
		s.store.InvalidateByTag(ctx, cache.MenuTag(next.ID),
			fmt.Sprintf("menu %s updated to version %d", next.ID, next.Version))
	}
	return nil
}

// Unregister removes a menu and every tree cached for it.
func (s *Service) Unregister(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.menus[id]
	delete(s.menus, id)
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.usageMu.Lock()
	delete(s.usage, id)
	s.usageMu.Unlock()

	s.store.InvalidateByTag(ctx, cache.MenuTag(id), "menu "+id+" unregistered")
	s.logger.Info(ctx, "menu unregistered", observe.F("menu_id", id))
	return true
}

// Menu returns the registered menu with id.
func (s *Service) Menu(id string) (*nav.Menu, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus[id]
	return m, ok
}

// Menus returns the registered menus ordered by id.
func (s *Service) Menus() []*nav.Menu {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedMenus(s.menus, nil)
}

// Sync makes the registry match the source: new and changed menus are
// registered, menus gone from the source are unregistered.
func (s *Service) Sync(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}
	menus, err := s.source.Menus(ctx)

	s.mu.Lock()
	s.lastSync, s.syncErr = s.now(), err
	s.mu.Unlock()
	if err != nil {
		s.logger.Error(ctx, "menu sync failed", observe.F("error", err))
		return fmt.Errorf("navigation: sync: %w", err)
	}

	seen := make(map[string]struct{}, len(menus))
	var errs []error
	for _, m := range menus {
		if err := s.Register(ctx, m); err != nil {
			errs = append(errs, err)
			continue
		}
		seen[m.ID] = struct{}{}
	}
	for _, m := range s.Menus() {
		if _, ok := seen[m.ID]; !ok {
			s.Unregister(ctx, m.ID)
		}
	}
	return errors.Join(errs...)
}

// lookup returns a registered menu, falling back to the source.
func (s *Service) lookup(ctx context.Context, id string) (*nav.Menu, error) {
	if m, ok := s.Menu(id); ok {
		return m, nil
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: %q", ErrMenuNotFound, id)
	}
	m, err := s.source.Menu(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Register(ctx, m); err != nil {
		return nil, err
	}
	if m, ok := s.Menu(id); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMenuNotFound, id)
}

// scopeRank orders menu scopes for selection, most specific first.
func scopeRank(sc nav.Scope) int {
	switch sc {
	case nav.ScopeUser:
		return 0
	case nav.ScopeTenant:
		return 1
	case nav.ScopeGlobal:
		return 2
	default:
		return 3
	}
}

// selectMenu picks the menu for p: menuID when given, otherwise the most
// specific active menu visible to p, ties broken by id.
func (s *Service) selectMenu(ctx context.Context, p nav.Principal, menuID string) (*nav.Menu, error) {
	if menuID != "" {
		m, err := s.lookup(ctx, menuID)
		if err != nil {
			return nil, err
		}
		if !m.Visible(p) {
			return nil, fmt.Errorf("%w: menu %q", ErrNoNavigation, menuID)
		}
		return m, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *nav.Menu
	for _, m := range s.menus {
		if !m.Visible(p) {
			continue
		}
		if best == nil {
			best = m
			continue
		}
		r, br := scopeRank(m.Scope), scopeRank(best.Scope)
		if r < br || (r == br && m.ID < best.ID) {
			best = m
		}
	}
	if best == nil {
		return nil, ErrNoNavigation
	}
	return best, nil
}

// Start launches the cache sweep and subscribes to permission and tenant
// events on the bus. Starting a running service does nothing.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.running {
		return nil
	}
	s.store.Start(ctx)
	if s.bus != nil {
		s.unsubs = append(s.unsubs,
			s.bus.Subscribe(events.UserPermissionsChanged, "navigation.permissions", s.handlePermissionsChanged),
			s.bus.Subscribe(events.TenantSwitched, "navigation.tenant", s.handleTenantSwitched),
		)
	}
	s.running = true
	return nil
}

// Stop unsubscribes from the bus and halts the cache sweep.
func (s *Service) Stop() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if !s.running {
		return ErrNotStarted
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.store.Stop()
	s.running = false
	return nil
}
