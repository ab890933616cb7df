package navigation

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/navcache/cache"
	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/observe"
)

// WarmUp computes the default navigation of each principal and inserts the
// trees that are not already cached. Principals without navigation are
// skipped. It returns the number of trees inserted.
func (s *Service) WarmUp(ctx context.Context, principals []nav.Principal) (int, error) {
	items := make([]cache.WarmItem[*nav.Tree], len(principals))
	computed := make([]bool, len(principals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WarmConcurrency)
	for i, p := range principals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := s.selectMenu(gctx, p, "")
			if errors.Is(err, ErrNoNavigation) {
				return nil
			}
			if err != nil {
				return err
			}
			f := fingerprint(m, p)
			items[i] = cache.WarmItem[*nav.Tree]{
				Key:   f.Key(),
				Value: nav.Filter(m.Tree, p, s.cfg.Filter),
				Meta:  cache.MetaFor(f, m.Version),
			}
			computed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	batch := items[:0]
	for i, ok := range computed {
		if ok {
			batch = append(batch, items[i])
		}
	}
	n, err := s.store.WarmUp(ctx, batch)
	s.logger.Info(ctx, "navigation cache warmed",
		observe.F("principals", len(principals)),
		observe.F("inserted", n),
	)
	return n, err
}
