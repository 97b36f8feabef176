package mockgw

import (
	"sync"
	"time"
)

// TTLCache is a bounded, thread-safe map whose entries expire after a fixed TTL.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	ttl     time.Duration
	maxSize int
	stop    chan struct{}
	once    sync.Once
}

type ttlEntry[V any] struct {
	value  V
	expiry time.Time
}

// NewTTLCache creates a cache with the given entry TTL and maximum size, and starts a
// goroutine that drops expired entries every cleanupInterval until Close is called.
func NewTTLCache[V any](ttl time.Duration, maxSize int, cleanupInterval time.Duration) *TTLCache[V] {
	cache := &TTLCache[V]{
		entries: make(map[string]ttlEntry[V]),
		ttl:     ttl,
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}
	go cache.cleanupLoop(cleanupInterval)
	return cache
}

// Get returns the value stored under key if it has not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !time.Now().Before(e.expiry) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Contains checks if the key exists and is not expired
func (c *TTLCache[V]) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Add stores key if it is absent or expired. It returns false if a live entry exists
// or the cache is full of live entries.
func (c *TTLCache[V]) Add(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key]; exists && time.Now().Before(e.expiry) {
		return false
	}

	// If at max capacity, do a synchronous cleanup
	if len(c.entries) >= c.maxSize {
		c.cleanupExpiredLocked()
		if len(c.entries) >= c.maxSize {
			return false
		}
	}

	c.entries[key] = ttlEntry[V]{value: value, expiry: time.Now().Add(c.ttl)}
	return true
}

// Update replaces the value of a live entry without extending its TTL.
func (c *TTLCache[V]) Update(key string, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !time.Now().Before(e.expiry) {
		return false
	}
	e.value = fn(e.value)
	c.entries[key] = e
	return true
}

// cleanupLoop periodically removes expired entries
func (c *TTLCache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.cleanupExpiredLocked()
			c.mu.Unlock()
		}
	}
}

// cleanupExpiredLocked removes expired entries (must be called with lock held)
func (c *TTLCache[V]) cleanupExpiredLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, key)
		}
	}
}

// Size returns the current number of entries in the cache
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *TTLCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}
