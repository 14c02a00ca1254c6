// Package cache provides a generic in-memory cache with per-entry TTL.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache. Expired entries are returned as misses
// and swept periodically in the background.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	done    chan struct{}
	once    sync.Once
}

// New creates a cache whose janitor sweeps expired entries every
// sweepInterval.
func New[K comparable, V any](sweepInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]entry[V]),
		done:    make(chan struct{}),
	}
	go c.janitor(sweepInterval)
	return c
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *Cache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background janitor.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
