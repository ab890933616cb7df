package navigation

import (
	"context"

	"github.com/jonwraymond/navcache/health"
)

// CacheChecker reports the service cache as degraded or unhealthy as it
// fills up.
func (s *Service) CacheChecker(cfg health.CapacityConfig) health.Checker {
	return health.NewCapacityChecker("navigation_cache", cfg, s.Usage)
}

// RegistryChecker reports unhealthy while no menu is registered and
// degraded while the last sync with the source failed.
func (s *Service) RegistryChecker() health.Checker {
	return health.NewCheckerFunc("navigation_menus", func(_ context.Context) health.Result {
		s.mu.RLock()
		n, syncErr := len(s.menus), s.syncErr
		s.mu.RUnlock()

		details := map[string]any{"menus": n}
		switch {
		case n == 0:
			return health.Unhealthy("no menus registered", ErrNoNavigation).WithDetails(details)
		case syncErr != nil:
			details["sync_error"] = syncErr.Error()
			return health.Degraded("menu sync failing; serving last known menus").WithDetails(details)
		default:
			return health.Healthy("menus registered").WithDetails(details)
		}
	})
}
