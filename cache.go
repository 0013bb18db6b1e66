package sqsdispatch

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/singleflight"
)

// coalescingCache memoizes successful lookups by key for the life of the
// process. Concurrent misses on the same key share one in-flight fetch.
// Failed fetches are not stored.
type coalescingCache[V any] struct {
	values cmap.ConcurrentMap[string, V]
	group  singleflight.Group
}

func newCoalescingCache[V any]() *coalescingCache[V] {
	return &coalescingCache[V]{values: cmap.New[V]()}
}

// Get returns the cached value for key, calling fetch on a miss.
func (c *coalescingCache[V]) Get(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.values.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that missed just before the previous flight stored its
		// value lands here after the flight has finished.
		if v, ok := c.values.Get(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.values.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of cached keys.
func (c *coalescingCache[V]) Len() int {
	return c.values.Count()
}

// Clear drops every cached value. Flights already running still complete and
// store their result.
func (c *coalescingCache[V]) Clear() {
	c.values.Clear()
}
