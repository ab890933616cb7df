package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jonwraymond/navcache/auth"
	"github.com/jonwraymond/navcache/config"
	"github.com/jonwraymond/navcache/events"
	"github.com/jonwraymond/navcache/health"
	"github.com/jonwraymond/navcache/navigation"
	"github.com/jonwraymond/navcache/observe"
	"github.com/jonwraymond/navcache/resilience"
)

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "navd.yaml", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(sctx)
	}()
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}

	bus := events.NewBus(logger)
	bus.Subscribe(events.CacheInvalidated, "navd.audit", func(ctx context.Context, ev events.Event) error {
		logger.Info(ctx, "navigation invalidated",
			observe.F("menu_id", ev.MenuID),
			observe.F("keys", len(ev.AffectedIDs)),
			observe.F("reason", ev.Reason),
		)
		return nil
	})

	svc, breaker, files, err := newService(cfg, logger, mw, bus)
	if err != nil {
		return err
	}
	if err := svc.Sync(ctx); err != nil {
		logger.Warn(ctx, "initial menu sync incomplete", observe.F("error", err))
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Stop() }()

	if cfg.Menus.Watch {
		go func() {
			if err := files.Watch(ctx); err != nil {
				logger.Error(ctx, "menu watch stopped", observe.F("error", err))
			}
		}()
	}

	if cfg.Menus.SyncSchedule != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(cfg.Menus.SyncSchedule, func() {
			// Sync logs its own failures.
			_ = svc.Sync(ctx)
		}); err != nil {
			return fmt.Errorf("sync schedule: %w", err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	authn := auth.NewJWTAuthenticator(cfg.Auth.JWT, auth.NewStaticKeyProvider([]byte(cfg.Auth.SigningKey)))
	roles := auth.NewRoleResolver(cfg.Auth.RBAC)

	agg := health.NewAggregator(cfg.Health.Timeout)
	agg.Register(svc.CacheChecker(cfg.Health.Capacity))
	agg.Register(svc.RegistryChecker())
	agg.Register(breakerChecker(breaker))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	svc.RegisterHandlers(mux, auth.PrincipalFunc(authn, roles))
	if cfg.Server.MetricsPath != "" {
		mux.Handle("GET "+cfg.Server.MetricsPath, promhttp.Handler())
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      otelhttp.NewHandler(mux, config.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "navd listening",
			observe.F("addr", cfg.Server.Addr),
			observe.F("menus", len(svc.Menus())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "navd shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newService builds the navigation service over the configured menu files.
// Source calls go through a retry, circuit breaker, and timeout executor.
func newService(cfg config.Config, logger observe.Logger, mw *observe.Middleware, bus *events.Bus) (*navigation.Service, *resilience.CircuitBreaker, *navigation.FileSource, error) {
	var svc *navigation.Service
	files, err := navigation.NewFileSource(cfg.Menus.Path,
		navigation.WithFileLogger(logger),
		navigation.OnChange(func(ctx context.Context, _ []string) {
			// The initial load runs before the service exists.
			if svc != nil {
				_ = svc.Sync(ctx)
			}
		}),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("menus: %w", err)
	}

	breakerCfg := cfg.Source.Breaker
	breakerCfg.OnStateChange = func(from, to resilience.State) {
		logger.Warn(context.Background(), "menu source circuit changed",
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		)
	}
	breaker := resilience.NewCircuitBreaker(breakerCfg)
	exec := resilience.NewExecutor(
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRetry(resilience.NewRetry(cfg.Source.Retry)),
		resilience.WithTimeout(cfg.Source.Timeout),
	)

	svc, err = navigation.New(cfg.Navigation,
		navigation.WithLogger(logger),
		navigation.WithMiddleware(mw),
		navigation.WithBus(bus),
		navigation.WithSource(navigation.NewResilientSource(files, exec)),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, breaker, files, nil
}

// breakerChecker reports the menu source degraded while its circuit is not
// closed.
func breakerChecker(cb *resilience.CircuitBreaker) health.Checker {
	return health.NewCheckerFunc("menu_source", func(context.Context) health.Result {
		state := cb.State()
		details := map[string]any{"circuit": state.String()}
		if state != resilience.StateClosed {
			return health.Degraded("menu source circuit " + state.String()).WithDetails(details)
		}
		return health.Healthy("menu source reachable").WithDetails(details)
	})
}
