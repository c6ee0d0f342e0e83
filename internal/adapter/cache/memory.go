package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"todoapi/internal/core/port"
)

// MemoryCache keeps entries in process. Entries without an explicit ttl use
// the default expiration given at construction.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}

	c.store.Set(key, value, ttl)

	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	value, found := c.store.Get(key)

	if !found {
		return nil, port.ErrCacheMiss
	}

	data, ok := value.([]byte)

	if !ok {
		return nil, port.ErrCacheMiss
	}

	return data, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)

	return nil
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}

	return nil
}

func (c *MemoryCache) Close() error {
	c.store.Flush()

	return nil
}
