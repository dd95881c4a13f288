package classify

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     Classification
	expiresAt time.Time
}

// cache is a TTL-keyed-by-canonical-URL memoization of classification
// results (spec §4.3: "keyed by the canonical URL; TTL configurable;
// bypassed if forceRefresh"). A plain mutex-guarded map is enough here —
// unlike the hierarchy cache (C11), there's no prefix-invalidation need,
// so tidwall/buntdb's ordered-KV strengths don't apply.
type cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newCache(ttl time.Duration) *cache {
	return &cache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func (c *cache) get(key string) (Classification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return Classification{}, false
	}
	return e.value, true
}

func (c *cache) set(key string, value Classification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

func (c *cache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
