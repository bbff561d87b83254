package agents

import (
	"context"
	"sync"
	"time"

	"market-insight/observability"
)

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// ResultCache is an in-memory TTL cache for completed analyses. Entries
// expire lazily on read; GetOrCompute serializes concurrent computations of
// the same key so identical requests inside the TTL window hit the model at
// most once.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	keyLock map[string]*sync.Mutex
	now     func() time.Time
}

// NewResultCache creates an empty cache
func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[string]*cacheEntry),
		keyLock: make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and not expired
func (c *ResultCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	// An entry is dead the instant now reaches expiresAt
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Put stores value under key with the given TTL, replacing any existing entry
func (c *ResultCache) Put(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result for ttl. Concurrent calls for the same key wait for the first
// computation instead of duplicating it. A compute error is returned without
// caching anything.
func (c *ResultCache) GetOrCompute(ctx context.Context, namespace, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error) {
	metrics := observability.GetMetrics()

	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if value, ok := c.Get(key); ok {
		metrics.RecordCacheLookup(namespace, "hit")
		return value, nil
	}
	metrics.RecordCacheLookup(namespace, "miss")

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.Put(key, value, ttl)
	return value, nil
}

func (c *ResultCache) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.keyLock[key]
	if !ok {
		lock = &sync.Mutex{}
		c.keyLock[key] = lock
	}
	return lock
}
