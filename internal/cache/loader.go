package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader is a read-through cache. Concurrent misses for the same key share
// a single call to the load function. Failed loads are not cached.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

func (l *Loader[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %q: %w", key, err)
	}
	return v.(T), nil
}

func (l *Loader[T]) Invalidate(key string) {
	l.cache.Delete(key)
	l.group.Forget(key)
}

func (l *Loader[T]) InvalidateAll() {
	l.cache.Purge()
}

func (l *Loader[T]) Size() int {
	return l.cache.Size()
}
