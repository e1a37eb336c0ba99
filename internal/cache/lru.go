// Package cache provides the signal caches: a local LRU, Redis, and both layered.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

var errEmptyKey = errors.New("cache key is required")

// LRUCache holds shipment counts in process. It serves single-node
// deployments on its own and sits in front of Redis when two-phase caching
// is on. Entries expire by TTL; past capacity, expired entries go first and
// then the least recently read.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	index    map[string]*list.Element
	recency  *list.List // front is most recently used
	now      func() time.Time
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *lruEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// NewLRUCache returns a cache holding at most capacity entries, 10000 when
// capacity is not positive.
func NewLRUCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LRUCache{
		capacity: capacity,
		index:    make(map[string]*list.Element),
		recency:  list.New(),
		now:      time.Now,
	}
}

// Get returns the value under key. Misses and expired entries return nil, nil.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		return nil, nil
	}
	entry := elem.Value.(*lruEntry)
	if entry.expired(c.now()) {
		c.drop(elem)
		return nil, nil
	}
	c.recency.MoveToFront(elem)
	return entry.value, nil
}

// Set stores value under key for ttl. A non-positive ttl removes the key.
func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		if elem, ok := c.index[key]; ok {
			c.drop(elem)
		}
		return nil
	}

	now := c.now()
	if elem, ok := c.index[key]; ok {
		entry := elem.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = now.Add(ttl)
		c.recency.MoveToFront(elem)
		return nil
	}

	c.index[key] = c.recency.PushFront(&lruEntry{key: key, value: value, expiresAt: now.Add(ttl)})
	if c.recency.Len() > c.capacity {
		c.evict(now)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *LRUCache) Delete(_ context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.drop(elem)
	}
	return nil
}

// Ping always succeeds.
func (c *LRUCache) Ping(context.Context) error {
	return nil
}

// Close drops every entry.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element)
	c.recency = list.New()
	return nil
}

// Stats reports the number of entries held and the capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len(), c.capacity
}

// evict brings the cache back to capacity, sweeping expired entries before
// touching live ones.
func (c *LRUCache) evict(now time.Time) {
	for elem := c.recency.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*lruEntry).expired(now) {
			c.drop(elem)
		}
		elem = prev
	}
	for c.recency.Len() > c.capacity {
		c.drop(c.recency.Back())
	}
}

func (c *LRUCache) drop(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.index, elem.Value.(*lruEntry).key)
}
