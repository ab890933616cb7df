package navigation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/navcache/cache"
	"github.com/jonwraymond/navcache/events"
	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/observe"
)

func mustMenu(t *testing.T, spec nav.MenuSpec) *nav.Menu {
	t.Helper()
	m, err := spec.Build(1)
	if err != nil {
		t.Fatalf("Build(%s): %v", spec.ID, err)
	}
	return m
}

// sampleItems is A (public), B (needs x) with child C (needs y).
func sampleItems() []nav.Item {
	return []nav.Item{
		{ID: "A", Label: "A", Path: "/a"},
		{ID: "B", Label: "B", Path: "/b", Permissions: []string{"x"}, Children: []nav.Item{
			{ID: "C", Label: "C", Path: "/b/c", Permissions: []string{"y"}},
		}},
	}
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	s, err := New(DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func register(t *testing.T, s *Service, specs ...nav.MenuSpec) {
	t.Helper()
	for _, spec := range specs {
		if err := s.Register(context.Background(), mustMenu(t, spec)); err != nil {
			t.Fatalf("Register(%s): %v", spec.ID, err)
		}
	}
}

func nodeIDs(tree *nav.Tree) []string {
	var out []string
	tree.Walk(func(id nav.NodeID, _ int) bool {
		out = append(out, tree.Node(id).ID)
		return true
	})
	return out
}

func eventsOf(evs []events.Event, typ events.Type) []events.Event {
	var out []events.Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestResolve_SelectsMostSpecificMenu(t *testing.T) {
	s := newService(t)
	register(t, s,
		nav.MenuSpec{ID: "main", Items: sampleItems()},
		nav.MenuSpec{ID: "zz-global", Items: sampleItems()},
		nav.MenuSpec{ID: "acme", Scope: nav.ScopeTenant, TenantID: "t1", Items: sampleItems()},
		nav.MenuSpec{ID: "personal", Scope: nav.ScopeUser, UserID: "u1", Items: sampleItems()},
		nav.MenuSpec{ID: "admin", Scope: nav.ScopeSystem, Items: sampleItems()},
		nav.MenuSpec{ID: "archived", Scope: nav.ScopeUser, UserID: "u2", Inactive: true, Items: sampleItems()},
	)

	tests := []struct {
		name string
		p    nav.Principal
		want string
	}{
		{"user menu first", nav.Principal{UserID: "u1", TenantID: "t1"}, "personal"},
		{"tenant before global", nav.Principal{UserID: "u2", TenantID: "t1"}, "acme"},
		{"global ties by id", nav.Principal{UserID: "u3", TenantID: "t2"}, "main"},
		{"global before system", nav.Principal{UserID: "root", SystemAdmin: true}, "main"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Resolve(context.Background(), tt.p, "")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.MenuID != tt.want {
				t.Errorf("MenuID = %q, want %q", res.MenuID, tt.want)
			}
		})
	}
}

func TestResolve_SystemMenuOnlyForAdmins(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "admin", Scope: nav.ScopeSystem, Items: sampleItems()})
	ctx := context.Background()

	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1"}, ""); !errors.Is(err, ErrNoNavigation) {
		t.Fatalf("err = %v, want ErrNoNavigation", err)
	}
	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1"}, "admin"); !errors.Is(err, ErrNoNavigation) {
		t.Fatalf("explicit err = %v, want ErrNoNavigation", err)
	}
	res, err := s.Resolve(ctx, nav.Principal{UserID: "root", SystemAdmin: true}, "")
	if err != nil || res.MenuID != "admin" {
		t.Fatalf("admin Resolve = %+v, %v", res, err)
	}
	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1"}, "missing"); !errors.Is(err, ErrMenuNotFound) {
		t.Fatalf("missing menu err = %v, want ErrMenuNotFound", err)
	}
}

func TestResolve_FiltersAndCaches(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	ctx := context.Background()
	p := nav.Principal{UserID: "u1", TenantID: "t1", Role: "viewer", Permissions: []string{"x"}}

	first, err := s.Resolve(ctx, p, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.CacheHit {
		t.Error("first resolution reported a hit")
	}
	if got := strings.Join(nodeIDs(first.Tree), ","); got != "A,B" {
		t.Errorf("filtered = %s, want A,B", got)
	}

	second, err := s.Resolve(ctx, p, "main")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !second.CacheHit {
		t.Error("second resolution missed")
	}
	if second.Tree != first.Tree {
		t.Error("cached tree not reused")
	}

	key := cache.Fingerprint{MenuID: "main", UserID: "u1", TenantID: "t1", Role: "viewer"}.Key()
	if !s.Store().Has(key) {
		t.Errorf("key %q not cached", key)
	}
	e, _ := s.Store().Get(ctx, key)
	want := []string{"menu:main", "role:viewer", "tenant:t1", "user:u1"}
	if strings.Join(e.Tags, ",") != strings.Join(want, ",") {
		t.Errorf("tags = %v, want %v", e.Tags, want)
	}

	st := s.Statistics()
	if len(st.Menus) != 1 || st.Menus[0].Resolutions != 2 || st.Menus[0].Hits != 1 || st.Menus[0].HitRatio != 0.5 {
		t.Errorf("menu stats = %+v", st.Menus)
	}

	accessed := eventsOf(s.DrainEvents(), events.NavigationAccessed)
	if len(accessed) != 2 || accessed[0].CacheHit || !accessed[1].CacheHit {
		t.Errorf("accessed events = %+v", accessed)
	}
}

func TestRegister_NewVersionInvalidates(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	ctx := context.Background()
	p := nav.Principal{UserID: "u1", Permissions: []string{"x", "y"}}

	if _, err := s.Resolve(ctx, p, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()[:1]})
	m, _ := s.Menu("main")
	if m.Version != 2 {
		t.Fatalf("Version = %d, want 2", m.Version)
	}
	if s.Store().Len() != 0 {
		t.Errorf("cache not invalidated on menu update")
	}
	h := s.History()
	if len(h) != 1 || h[0].Kind != cache.KindMenu || h[0].Tag != "menu:main" {
		t.Errorf("history = %+v", h)
	}

	res, err := s.Resolve(ctx, p, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CacheHit || res.Version != 2 || strings.Join(nodeIDs(res.Tree), ",") != "A" {
		t.Errorf("res = %+v (%v)", res, nodeIDs(res.Tree))
	}

	// Re-registering the stored value is a no-op.
	if err := s.Register(ctx, m); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Menu("main"); got.Version != 2 {
		t.Errorf("Version = %d after identical register", got.Version)
	}
}

func TestResolve_StaleVersionIsMiss(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	ctx := context.Background()
	p := nav.Principal{UserID: "u1"}
	if _, err := s.Resolve(ctx, p, ""); err != nil {
		t.Fatal(err)
	}

	// Plant an entry computed from an older version.
	key := cache.Fingerprint{MenuID: "main", UserID: "u1"}.Key()
	stale := cache.MetaFor(cache.Fingerprint{MenuID: "main", UserID: "u1"}, 0)
	if err := s.Store().Set(ctx, key, &nav.Tree{}, stale); err != nil {
		t.Fatal(err)
	}

	res, err := s.Resolve(ctx, p, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit || res.Tree.Len() == 0 {
		t.Errorf("stale entry served: %+v", res)
	}
}

func TestOnPermissionsChanged(t *testing.T) {
	s := newService(t)
	register(t, s,
		nav.MenuSpec{ID: "main", Items: sampleItems()},
		nav.MenuSpec{ID: "side", Items: sampleItems()},
	)
	ctx := context.Background()
	for _, p := range []nav.Principal{
		{UserID: "u1", TenantID: "t1"},
		{UserID: "u1", TenantID: "t2"},
		{UserID: "u2", TenantID: "t1"},
	} {
		for _, id := range []string{"main", "side"} {
			if _, err := s.Resolve(ctx, p, id); err != nil {
				t.Fatal(err)
			}
		}
	}
	s.DrainEvents()

	if n := s.OnPermissionsChanged(ctx, "u1", "t1"); n != 2 {
		t.Fatalf("removed = %d, want 2", n)
	}
	if s.Store().Len() != 4 {
		t.Errorf("Len = %d, want 4", s.Store().Len())
	}
	invalidated := eventsOf(s.DrainEvents(), events.CacheInvalidated)
	if len(invalidated) != 2 || invalidated[0].MenuID != "main" || invalidated[1].MenuID != "side" {
		t.Fatalf("events = %+v", invalidated)
	}
	if len(invalidated[0].AffectedIDs) != 1 || invalidated[0].Version != 1 {
		t.Errorf("event = %+v", invalidated[0])
	}

	if n := s.OnPermissionsChanged(ctx, "u1", ""); n != 2 {
		t.Errorf("all tenants removed = %d, want 2", n)
	}
	if got := s.History()[0].Kind; got != cache.KindPermission {
		t.Errorf("kind = %q, want permission", got)
	}
}

func TestOnPermissionsChanged_AllTenantsUsesUserTag(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	ctx := context.Background()
	for _, p := range []nav.Principal{
		{UserID: "u1", TenantID: "t1"},
		{UserID: "u1", TenantID: "t2"},
		{UserID: "u1"},
		{UserID: "u2", TenantID: "t1"},
	} {
		if _, err := s.Resolve(ctx, p, "main"); err != nil {
			t.Fatal(err)
		}
	}

	if n := s.OnPermissionsChanged(ctx, "u1", ""); n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}
	if !s.Store().Has(cache.Fingerprint{MenuID: "main", UserID: "u2", TenantID: "t1"}.Key()) {
		t.Error("other user's entry removed")
	}
	h := s.History()
	last := h[len(h)-1]
	if last.Kind != cache.KindPermission || last.Tag != cache.UserTag("u1") || last.Pattern != "" {
		t.Errorf("history = %+v", last)
	}
}

func TestOnTenantSwitched(t *testing.T) {
	s := newService(t)
	register(t, s,
		nav.MenuSpec{ID: "t1-menu", Scope: nav.ScopeTenant, TenantID: "t1", Items: sampleItems()},
		nav.MenuSpec{ID: "t2-menu", Scope: nav.ScopeTenant, TenantID: "t2", Items: sampleItems()},
	)
	ctx := context.Background()
	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1", TenantID: "t1"}, ""); err != nil {
		t.Fatal(err)
	}

	next := nav.Principal{UserID: "u1", TenantID: "t2", Role: "editor"}
	if n := s.OnTenantSwitched(ctx, "t1", next); n != 1 {
		t.Fatalf("removed = %d, want 1", n)
	}
	if !s.Store().Has(cache.Fingerprint{MenuID: "t2-menu", UserID: "u1", TenantID: "t2", Role: "editor"}.Key()) {
		t.Error("new tenant navigation not pre-warmed")
	}
	if s.Store().Has(cache.Fingerprint{MenuID: "t1-menu", UserID: "u1", TenantID: "t1"}.Key()) {
		t.Error("old tenant entry survived")
	}
}

func TestOnTenantSwitched_PrewarmFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	s := newService(t, WithLogger(observe.NewLoggerWithWriter("debug", &buf)))
	register(t, s, nav.MenuSpec{ID: "t1-menu", Scope: nav.ScopeTenant, TenantID: "t1", Items: sampleItems()})
	ctx := context.Background()
	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1", TenantID: "t1"}, ""); err != nil {
		t.Fatal(err)
	}

	if n := s.OnTenantSwitched(ctx, "t1", nav.Principal{UserID: "u1", TenantID: "t9"}); n != 1 {
		t.Fatalf("removed = %d, want 1", n)
	}
	if !strings.Contains(buf.String(), "pre-warm after tenant switch failed") {
		t.Errorf("pre-warm failure not logged:\n%s", buf.String())
	}
}

func TestTenantSwitchedEvent_CarriesSystemAdmin(t *testing.T) {
	tests := []struct {
		name  string
		admin bool
		want  int
	}{
		{"member", false, 1},
		{"admin", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.NewBus(nil)
			s := newService(t, WithBus(bus))
			register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
			ctx := context.Background()
			if err := s.Start(ctx); err != nil {
				t.Fatal(err)
			}
			defer s.Stop()

			sw := events.New(events.TenantSwitched)
			sw.UserID, sw.TenantID, sw.SystemAdmin = "u1", "t2", tt.admin
			if err := bus.Publish(ctx, sw); err != nil {
				t.Fatal(err)
			}
			e, ok := s.Store().Get(ctx, cache.Fingerprint{MenuID: "main", UserID: "u1", TenantID: "t2"}.Key())
			if !ok {
				t.Fatal("tenant switch did not pre-warm")
			}
			if got := e.Value.Len(); got != tt.want {
				t.Errorf("pre-warmed tree has %d nodes, want %d", got, tt.want)
			}
		})
	}
}

func TestCanAccess(t *testing.T) {
	s := newService(t)
	register(t, s,
		nav.MenuSpec{ID: "main", Items: sampleItems()},
		nav.MenuSpec{ID: "ops", Items: []nav.Item{{ID: "deploy", Label: "Deploy", Path: "/d", Permissions: []string{"ops:deploy"}}}},
	)
	ctx := context.Background()
	p := nav.Principal{UserID: "u1", Permissions: []string{"x", "ops:*"}}

	tests := []struct {
		node, menu string
		want       bool
		err        error
	}{
		{"A", "", true, nil},
		{"B", "main", true, nil},
		{"C", "", false, nil},
		{"deploy", "", true, nil},
		{"deploy", "main", false, ErrNodeNotFound},
		{"nope", "", false, ErrNodeNotFound},
		{"A", "missing", false, ErrMenuNotFound},
	}
	for _, tt := range tests {
		got, err := s.CanAccess(ctx, p, tt.node, tt.menu)
		if !errors.Is(err, tt.err) {
			t.Errorf("CanAccess(%s, %s) err = %v, want %v", tt.node, tt.menu, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("CanAccess(%s, %s) = %v, want %v", tt.node, tt.menu, got, tt.want)
		}
	}
	if s.Store().Len() != 0 {
		t.Error("CanAccess populated the cache")
	}
	checks := eventsOf(s.DrainEvents(), events.PermissionCheck)
	if len(checks) != 4 || checks[2].Allowed || checks[2].NodeID != "C" {
		t.Errorf("permission events = %+v", checks)
	}
}

func TestService_BusLifecycle(t *testing.T) {
	bus := events.NewBus(nil)
	s := newService(t, WithBus(bus))
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	var invalidated int
	bus.Subscribe(events.CacheInvalidated, "test", func(context.Context, events.Event) error {
		invalidated++
		return nil
	})

	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1", TenantID: "t1"}, ""); err != nil {
		t.Fatal(err)
	}
	ev := events.New(events.UserPermissionsChanged)
	ev.UserID, ev.TenantID = "u1", "t1"
	if err := bus.Publish(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if s.Store().Len() != 0 || invalidated != 1 {
		t.Errorf("Len = %d, invalidated events = %d", s.Store().Len(), invalidated)
	}

	sw := events.New(events.TenantSwitched)
	sw.UserID, sw.TenantID, sw.PreviousTenantID = "u1", "t2", "t1"
	if err := bus.Publish(ctx, sw); err != nil {
		t.Fatal(err)
	}
	if !s.Store().Has(cache.Fingerprint{MenuID: "main", UserID: "u1", TenantID: "t2"}.Key()) {
		t.Error("tenant switch event did not pre-warm")
	}

	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if bus.Subscribers(events.UserPermissionsChanged) != 0 {
		t.Error("subscription survived Stop")
	}
	if err := s.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop = %v, want ErrNotStarted", err)
	}
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	if err := newService(t).Sync(ctx); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Sync without source = %v", err)
	}

	src := NewMemorySource(mustMenu(t, nav.MenuSpec{ID: "main", Items: sampleItems()}))
	s := newService(t, WithSource(src))
	if err := s.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Menu("main"); !ok {
		t.Fatal("main not registered")
	}
	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1"}, ""); err != nil {
		t.Fatal(err)
	}

	// Unchanged source keeps the cache.
	if err := s.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Store().Len() != 1 {
		t.Fatalf("Len = %d after no-op sync", s.Store().Len())
	}

	if _, err := src.PutSpec(nav.MenuSpec{ID: "main", Items: sampleItems()[:1]}); err != nil {
		t.Fatal(err)
	}
	if err := s.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if m, _ := s.Menu("main"); m.Version != 2 || s.Store().Len() != 0 {
		t.Errorf("Version = %d, Len = %d", m.Version, s.Store().Len())
	}

	src.Delete("main")
	if err := s.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if len(s.Menus()) != 0 {
		t.Errorf("menus = %v", s.Menus())
	}
}

func TestResolve_SourceFallback(t *testing.T) {
	src := NewMemorySource(mustMenu(t, nav.MenuSpec{ID: "remote", Items: sampleItems()}))
	s := newService(t, WithSource(src))
	res, err := s.Resolve(context.Background(), nav.Principal{UserID: "u1"}, "remote")
	if err != nil {
		t.Fatal(err)
	}
	if res.MenuID != "remote" {
		t.Errorf("MenuID = %q", res.MenuID)
	}
	if _, ok := s.Menu("remote"); !ok {
		t.Error("fetched menu not registered")
	}
}

func TestWarmUp(t *testing.T) {
	s := newService(t)
	register(t, s,
		nav.MenuSpec{ID: "main", Items: sampleItems()},
		nav.MenuSpec{ID: "admin", Scope: nav.ScopeSystem, Items: sampleItems()},
	)
	ctx := context.Background()
	principals := []nav.Principal{
		{UserID: "u1", TenantID: "t1"},
		{UserID: "u2", TenantID: "t1"},
		{UserID: "u2", TenantID: "t1"},
	}

	n, err := s.WarmUp(ctx, principals)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}
	if n, _ := s.WarmUp(ctx, principals); n != 0 {
		t.Errorf("second warm-up inserted %d", n)
	}
	res, err := s.Resolve(ctx, principals[0], "")
	if err != nil || !res.CacheHit {
		t.Errorf("warmed resolve = %+v, %v", res, err)
	}
}

func TestWarmUp_SkipsPrincipalsWithoutNavigation(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "t1", Scope: nav.ScopeTenant, TenantID: "t1", Items: sampleItems()})
	n, err := s.WarmUp(context.Background(), []nav.Principal{{UserID: "u1", TenantID: "t9"}})
	if err != nil || n != 0 {
		t.Errorf("WarmUp = %d, %v", n, err)
	}
}

func TestUnregister(t *testing.T) {
	s := newService(t)
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	ctx := context.Background()
	if _, err := s.Resolve(ctx, nav.Principal{UserID: "u1"}, ""); err != nil {
		t.Fatal(err)
	}
	if !s.Unregister(ctx, "main") {
		t.Fatal("Unregister reported nothing removed")
	}
	if s.Unregister(ctx, "main") {
		t.Error("second Unregister removed something")
	}
	if s.Store().Len() != 0 || len(s.Statistics().Menus) != 0 {
		t.Error("unregistered menu left state behind")
	}
}

func TestEventBufferCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventBuffer = 3
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	register(t, s, nav.MenuSpec{ID: "main", Items: sampleItems()})
	for i := 0; i < 5; i++ {
		if _, err := s.Resolve(context.Background(), nav.Principal{UserID: "u1"}, ""); err != nil {
			t.Fatal(err)
		}
	}
	evs := s.DrainEvents()
	if len(evs) != 3 {
		t.Fatalf("buffered = %d, want 3", len(evs))
	}
	if !evs[0].CacheHit {
		t.Error("oldest event (the miss) not dropped")
	}
	if len(s.DrainEvents()) != 0 {
		t.Error("DrainEvents did not clear the buffer")
	}
}

func TestRegister_Invalid(t *testing.T) {
	s := newService(t)
	if err := s.Register(context.Background(), nil); !errors.Is(err, ErrInvalidMenu) {
		t.Errorf("nil menu err = %v", err)
	}
	if err := s.Register(context.Background(), &nav.Menu{}); !errors.Is(err, ErrInvalidMenu) {
		t.Errorf("unnamed menu err = %v", err)
	}
}
