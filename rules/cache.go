package rules

import (
	"time"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

// TableCache holds the last loaded table so reads skip the store
type TableCache interface {
	// Get returns the cached table, or nil on miss or expiry
	Get() *decisiontable.DecisionTable

	// Set stores table in the cache
	Set(table *decisiontable.DecisionTable)

	// Invalidate clears the cache, forcing a reload on next Get
	Invalidate()

	// IsValid returns true if the cache holds an unexpired table
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is how long a cached table is served. 0 means until the next save.
	TTL time.Duration
}

// DefaultCacheConfig caches until the table is saved
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
