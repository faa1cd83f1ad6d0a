// Package cache provides a caller-owned, capacity-bounded LRU cache of
// fetched price series, keyed by symbol and date range. It replaces ambient
// global caching: the owner constructs it, holds it, and decides its size.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"stockpulse/internal/model"
)

// SeriesKey builds the canonical cache key for a symbol and date range.
func SeriesKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

type lruEntry struct {
	key    string
	series *model.PriceSeries
}

// LRU is a least-recently-used cache of price series. Safe for concurrent use.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

// NewLRU creates an LRU cache holding at most capacity series.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached series for key, marking it most recently used.
func (c *LRU) Get(key string) (*model.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).series, true
}

// Put stores a series under key, evicting the least recently used entry when
// the cache is full.
func (c *LRU) Put(key string, series *model.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry).series = series
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&lruEntry{key: key, series: series})
}

// Len returns the current number of cached series.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
