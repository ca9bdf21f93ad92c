package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache remembers recently ingested article IDs so the worker does not send the same
// headline to the knowledge base twice. Entries expire after ttl; beyond capacity the
// oldest entries are evicted first.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// IsSeen reports whether key was marked within the ttl window. It does not mark the key.
func (c *Cache) IsSeen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.items[key]
	return ok && c.now().Sub(ts) <= c.ttl
}

// MarkSeen records key as ingested.
func (c *Cache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

// Len returns the number of live keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compact(c.now())
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// a re-marked key has a newer timestamp further down the queue
		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
