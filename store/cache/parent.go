// Package cache decorates agencyAuth stores with short-lived in-process
// caches.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	agencyAuth "github.com/MrEthical07/agencyAuth"
)

// DefaultTTL bounds how long a disabled parent entity may still admit logins.
const DefaultTTL = 30 * time.Second

// Config sizes a ParentEntityCache.
type Config struct {
	Size int
	TTL  time.Duration
}

// ParentEntityCache caches IsActive answers of an inner ParentEntityStore.
// Lookup errors are never cached.
type ParentEntityCache struct {
	inner  agencyAuth.ParentEntityStore
	cache  *lru.LRU[string, bool]
	hits   atomic.Uint64
	misses atomic.Uint64
}

var (
	_ agencyAuth.ParentEntityStore  = (*ParentEntityCache)(nil)
	_ agencyAuth.ParentEntityLister = (*ParentEntityCache)(nil)
)

// NewParentEntityCache wraps inner. Zero Size and TTL fall back to 1024
// entries and DefaultTTL.
func NewParentEntityCache(inner agencyAuth.ParentEntityStore, cfg Config) *ParentEntityCache {
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &ParentEntityCache{
		inner: inner,
		cache: lru.NewLRU[string, bool](cfg.Size, nil, cfg.TTL),
	}
}

func (c *ParentEntityCache) IsActive(ctx context.Context, parentEntityID string) (bool, error) {
	if active, ok := c.cache.Get(parentEntityID); ok {
		c.hits.Add(1)
		return active, nil
	}
	c.misses.Add(1)

	active, err := c.inner.IsActive(ctx, parentEntityID)
	if err != nil {
		return false, err
	}
	c.cache.Add(parentEntityID, active)
	return active, nil
}

// ActiveParentEntities is passed through uncached. An inner store without a
// listing returns an empty list.
func (c *ParentEntityCache) ActiveParentEntities(ctx context.Context) ([]agencyAuth.ParentEntity, error) {
	lister, ok := c.inner.(agencyAuth.ParentEntityLister)
	if !ok {
		return []agencyAuth.ParentEntity{}, nil
	}
	return lister.ActiveParentEntities(ctx)
}

// Invalidate drops the cached state of one entity, e.g. after an admin
// toggles it.
func (c *ParentEntityCache) Invalidate(parentEntityID string) {
	c.cache.Remove(parentEntityID)
}

// Stats returns hit and miss counts.
func (c *ParentEntityCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
