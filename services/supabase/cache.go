package supabase

import (
	"sync"
	"time"
)

// cacheTTL is how long a cached read stays fresh.
const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// tableCache is a read-through cache keyed by table and request path. Writes
// to a table drop every cached read for it, so listings refresh right after
// a mutation without waiting out the TTL.
type tableCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]map[string]cacheEntry
}

func newTableCache(ttl time.Duration) *tableCache {
	return &tableCache{
		ttl:     ttl,
		entries: make(map[string]map[string]cacheEntry),
	}
}

func (c *tableCache) get(table, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[table][key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries[table], key)
		return nil, false
	}
	return entry.body, true
}

func (c *tableCache) put(table, key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[table] == nil {
		c.entries[table] = make(map[string]cacheEntry)
	}
	c.entries[table][key] = cacheEntry{body: body, expires: time.Now().Add(c.ttl)}
}

func (c *tableCache) invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, table)
}
