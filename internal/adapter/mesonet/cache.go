package mesonet

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/plainswx/mesonet-data-service/internal/observability"
)

// DefaultCacheSize bounds the fetch cache to the last 20 distinct files.
const DefaultCacheSize = 20

// CachedFetcher wraps a Fetcher with an in-memory LRU cache of raw file
// bodies. Keys use the floored snapshot time (or the request date for
// time-series files), so repeated calls inside one snapshot window or one
// day hit the cache instead of the network.
type CachedFetcher struct {
	inner   Fetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, at time.Time, site string) ([]byte, error) {
	key := cacheKey(at, site)
	if body, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return body, nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	body, err := c.inner.Fetch(ctx, at, site)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, body)
	return body, nil
}

// cacheKey derives the memoization key. Snapshot requests key on the floored
// five-minute boundary, not the raw input, so two calls within the same
// window share one entry. Time-series requests key on the calendar day plus
// the lowercased site.
func cacheKey(at time.Time, site string) string {
	if site == "" {
		return "mdf:" + FloorSnapshotTime(at).Format("200601021504")
	}
	return "mts:" + at.Format("20060102") + ":" + strings.ToLower(site)
}

// lruCache is a thread-safe LRU cache for raw file bodies.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
