package cache

import (
	"sync"
	"time"
)

// Cache is an in-process TTL store used to trim provider reads on hot
// paths. One TTL covers every entry; expired entries are treated as
// absent and evicted lazily on the read that finds them. It never does
// I/O and never fails.
type Cache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Stats reports entry counts for diagnostics. Expired entries stay in
// the count until a read or Clear removes them.
type Stats struct {
	Total   int
	Active  int
	Expired int
}

// New creates a cache whose entries live for ttl after insertion.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the value stored under key while it is still fresh. An
// expired entry is deleted during this read and reported absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if c.expired(e) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

// Set stores value under key with the current time, replacing any prior
// entry wholesale.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, insertedAt: c.now()}
	c.mu.Unlock()
}

// Clear empties the store.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats counts entries without evicting anything.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		if c.expired(e) {
			s.Expired++
		} else {
			s.Active++
		}
	}
	return s
}

// TTL returns the cache-wide entry lifetime.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) expired(e entry[V]) bool {
	return c.now().Sub(e.insertedAt) >= c.ttl
}
