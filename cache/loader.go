package cache

import (
	"context"
	"errors"
)

// LoadFunc computes a value on a miss along with the metadata to store.
type LoadFunc[V any] func(ctx context.Context) (V, Meta, error)

type loaded[V any] struct {
	value V
}

// GetOrLoad returns the live entry for key or computes it with load.
// Concurrent misses on the same key share one load call. Load errors are
// returned and never cached. A value rejected as too large is still
// returned. The boolean reports whether the value came from the store.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, fresh func(Entry[V]) bool, load LoadFunc[V]) (V, bool, error) {
	if e, ok := s.GetIf(ctx, key, fresh); ok {
		return e.Value, true, nil
	}

	res, err, _ := s.group.Do(key, func() (any, error) {
		v, meta, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Set(ctx, key, v, meta); err != nil && !errors.Is(err, ErrEntryTooLarge) {
			return nil, err
		}
		return loaded[V]{value: v}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(loaded[V]).value, false, nil
}
