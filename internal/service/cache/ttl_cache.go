package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// TTLCache is a small in-process map with per-entry expiry, used for HTTP
// responses that are cheap to recompute but hit by dashboards every few seconds.
type TTLCache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	ttl time.Duration
	now func() time.Time
}

// NewTTLCache returns a cache whose entries live for ttl. ttl <= 0 disables caching.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{m: make(map[string]entry[V]), ttl: ttl, now: time.Now}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.now().After(e.exp) {
		c.mu.Lock()
		if cur, ok := c.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.v, true
}

func (c *TTLCache[V]) Set(key string, v V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *TTLCache[V]) Purge() {
	c.mu.Lock()
	c.m = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
