package web

import (
	"context"
	"sync"
)

// Fetcher retrieves one archive page by name.
type Fetcher interface {
	FetchPage(ctx context.Context, name string) (string, error)
}

// CachedFetcher wraps a Fetcher with an in-memory LRU cache. Archive pages
// are immutable once published, so a harvest that revisits a page never
// needs to refetch it within a run.
type CachedFetcher struct {
	inner Fetcher
	cache *lruCache
	hit   func()
	miss  func()
}

// NewCachedFetcher creates a cache decorator around a fetcher. The hit and
// miss callbacks feed the cache metrics; either may be nil.
func NewCachedFetcher(inner Fetcher, maxEntries int, hit, miss func()) *CachedFetcher {
	if hit == nil {
		hit = func() {}
	}
	if miss == nil {
		miss = func() {}
	}
	return &CachedFetcher{
		inner: inner,
		cache: newLRUCache(maxEntries),
		hit:   hit,
		miss:  miss,
	}
}

func (c *CachedFetcher) FetchPage(ctx context.Context, name string) (string, error) {
	if body, ok := c.cache.get(name); ok {
		c.hit()
		return body, nil
	}
	c.miss()

	body, err := c.inner.FetchPage(ctx, name)
	if err != nil {
		return "", err
	}
	// Only cache non-empty bodies so a transient empty response can be retried.
	if body != "" {
		c.cache.put(name, body)
	}
	return body, nil
}

// lruCache is a simple thread-safe LRU cache for page bodies.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value string
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key, value string) {
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
