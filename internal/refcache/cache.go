// Package refcache resolves referenced assemblies once per process.
//
// Entries are created lazily on the first request for an identity and are
// never evicted. Concurrent requests for the same identity share one load;
// failed loads are not remembered and are retried by the next caller.
package refcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Identity names one referenced assembly.
type Identity struct {
	Name    string
	Version string
}

func (id Identity) String() string {
	if id.Version == "" {
		return id.Name
	}
	return id.Name + "@" + id.Version
}

// LoadFunc produces the metadata for an identity.
type LoadFunc[V any] func(ctx context.Context, id Identity) (V, error)

type Cache[V any] struct {
	load    LoadFunc[V]
	entries sync.Map // Identity -> V
	group   singleflight.Group
	loads   atomic.Int64
}

func New[V any](load LoadFunc[V]) *Cache[V] {
	return &Cache[V]{load: load}
}

// Resolve returns the cached value for id, loading it if absent.
func (c *Cache[V]) Resolve(ctx context.Context, id Identity) (V, error) {
	if v, ok := c.entries.Load(id); ok {
		return v.(V), nil
	}

	res, err, _ := c.group.Do(id.String(), func() (any, error) {
		// a concurrent flight may have stored it between Load and Do
		if v, ok := c.entries.Load(id); ok {
			return v, nil
		}
		c.loads.Add(1)
		v, err := c.load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", id, err)
		}
		actual, _ := c.entries.LoadOrStore(id, v)
		return actual, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Peek returns a cached value without loading.
func (c *Cache[V]) Peek(id Identity) (V, bool) {
	v, ok := c.entries.Load(id)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Len counts cached identities.
func (c *Cache[V]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Loads reports how many times the load function ran.
func (c *Cache[V]) Loads() int64 {
	return c.loads.Load()
}
