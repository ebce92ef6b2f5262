// Package cache keeps the latest audit result of each tab.
package cache

import (
	"sync"
	"time"

	"github.com/sykell/metabear/internal/audit"
)

// Entry is the cached audit of one tab at one URL.
type Entry struct {
	TabID    int
	URL      string
	Result   *audit.Result
	StoredAt time.Time
}

// TabCache holds at most one entry per tab. It lives in memory only and is
// safe for concurrent use.
type TabCache struct {
	mu      sync.RWMutex
	entries map[int]Entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *TabCache {
	return &TabCache{
		entries: make(map[int]Entry),
		now:     time.Now,
	}
}

// Get returns the entry for tabID, if any.
func (c *TabCache) Get(tabID int) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[tabID]
	return entry, ok
}

// Put stores result as the entry for tabID, replacing any previous one.
func (c *TabCache) Put(tabID int, url string, result *audit.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tabID] = Entry{
		TabID:    tabID,
		URL:      url,
		Result:   result,
		StoredAt: c.now(),
	}
}

// PutIf stores result only while keep returns true. keep runs under the
// cache lock, so the check and the write are atomic with respect to other
// cache operations.
func (c *TabCache) PutIf(tabID int, url string, result *audit.Result, keep func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !keep() {
		return false
	}
	c.entries[tabID] = Entry{
		TabID:    tabID,
		URL:      url,
		Result:   result,
		StoredAt: c.now(),
	}
	return true
}

// Invalidate drops the entry for tabID and reports whether one existed.
func (c *TabCache) Invalidate(tabID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[tabID]
	delete(c.entries, tabID)
	return ok
}

// Len returns the number of cached tabs.
func (c *TabCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
