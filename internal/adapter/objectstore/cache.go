package objectstore

import (
	"context"
	"sync"
)

// CachedClient serves index text from an in-memory LRU cache keyed by object
// path. Probes and range reads go straight to the underlying Client.
type CachedClient struct {
	*Client
	cache *lruCache[string]
}

// NewCachedClient creates a cache decorator around a bucket client.
func NewCachedClient(c *Client, maxEntries int) *CachedClient {
	return &CachedClient{
		Client: c,
		cache:  newLRUCache[string](maxEntries),
	}
}

// FetchIndex returns cached index text for path, downloading it on a miss.
// Failures are not cached so a later request can retry.
func (c *CachedClient) FetchIndex(ctx context.Context, path string) (string, error) {
	if text, ok := c.cache.get(path); ok {
		c.metrics.IndexCache.WithLabelValues("hit").Inc()
		return text, nil
	}
	c.metrics.IndexCache.WithLabelValues("miss").Inc()

	text, err := c.Client.FetchIndex(ctx, path)
	if err != nil {
		return "", err
	}
	c.cache.put(path, text)
	return text, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
