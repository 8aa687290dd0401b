// Package cache holds short-lived results keyed by string.
package cache

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultTTL is how long an entry stays readable after Set.
const DefaultTTL = 5 * time.Minute

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a TTL cache. Entries are replaced wholesale by Set and checked for
// expiry on read. Set also drops every expired entry, at most once per TTL, so
// keys that are never read again do not pile up. Values should be treated as
// immutable once stored.
type Cache[V any] struct {
	mu        sync.RWMutex
	entries   map[string]entry[V]
	ttl       time.Duration
	clock     clock.PassiveClock
	lastSweep time.Time
}

type Option[V any] func(*Cache[V])

func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) { c.ttl = ttl }
}

func WithClock[V any](clk clock.PassiveClock) Option[V] {
	return func(c *Cache[V]) { c.clock = clk }
}

func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: map[string]entry[V]{},
		ttl:     DefaultTTL,
		clock:   clock.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key unless it is missing or older than the TTL.
// Expired entries are dropped.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.clock.Since(e.storedAt) > c.ttl {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have replaced it.
		if cur, still := c.entries[key]; still && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweep(now)
	}
	c.entries[key] = entry[V]{value: value, storedAt: now}
}

// sweep drops expired entries. Callers hold mu.
func (c *Cache[V]) sweep(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.lastSweep = now
}

// Clear removes the given keys, or everything when called without keys.
func (c *Cache[V]) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.entries = map[string]entry[V]{}
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
