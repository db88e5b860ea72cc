// Package cache is a typed in-memory TTL cache for values computed during a run.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Cache[V any] struct {
	items *gocache.Cache
}

// New creates a cache whose entries expire after ttl; expired entries are
// purged every cleanup interval.
func New[V any](ttl, cleanup time.Duration) *Cache[V] {
	return &Cache[V]{items: gocache.New(ttl, cleanup)}
}

func (c *Cache[V]) Set(key string, value V) {
	c.items.Set(key, value, gocache.DefaultExpiration)
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (c *Cache[V]) Delete(key string) {
	c.items.Delete(key)
}

func (c *Cache[V]) Len() int {
	return c.items.ItemCount()
}
