// Package storage provides the local cache, remote store, and receipt
// archive implementations behind the domain ports.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Compile-time interface check.
var _ domain.LocalCache = (*MemoryCache)(nil)

// MemoryCache is an in-memory local cache. Safe for concurrent access.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string][]byte
	log  *logger.Logger
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		data: make(map[string][]byte),
		log:  log,
	}
}

// Put stores a copy of value under key. Overwrites if it already exists.
func (c *MemoryCache) Put(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("cache: put %s (%d bytes)", key, len(value))
	c.data[key] = append([]byte(nil), value...)
	return nil
}

// Get returns a copy of the value under key.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	c.log.Debug("cache: deleted %s", key)
	return nil
}
