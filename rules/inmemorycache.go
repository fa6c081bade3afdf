package rules

import (
	"sync"
	"time"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

// InMemoryTableCache is a TableCache for a single process
type InMemoryTableCache struct {
	table    *decisiontable.DecisionTable
	cachedAt time.Time
	config   CacheConfig
	now      func() time.Time
	mu       sync.RWMutex
}

// NewInMemoryTableCache creates an empty cache
func NewInMemoryTableCache(config CacheConfig) *InMemoryTableCache {
	return &InMemoryTableCache{
		config: config,
		now:    time.Now,
	}
}

// Get returns a copy of the cached table, or nil if invalid or expired
func (c *InMemoryTableCache) Get() *decisiontable.DecisionTable {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.validLocked() {
		return nil
	}
	return c.table.Clone()
}

// Set stores a copy of table
func (c *InMemoryTableCache) Set(table *decisiontable.DecisionTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if table == nil {
		c.table = nil
		return
	}
	c.table = table.Clone()
	c.cachedAt = c.now()
}

// Invalidate clears the cache
func (c *InMemoryTableCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = nil
}

// IsValid returns true if the cache holds an unexpired table
func (c *InMemoryTableCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.validLocked()
}

func (c *InMemoryTableCache) validLocked() bool {
	if c.table == nil {
		return false
	}
	if c.config.TTL > 0 && c.now().Sub(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
