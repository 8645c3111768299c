package store

import (
	"context"

	ristretto "github.com/dgraph-io/ristretto/v2"
)

// CacheConfig sizes the in-memory read cache.
type CacheConfig struct {
	Enabled     bool  `yaml:"enabled"`
	NumCounters int64 `yaml:"num_counters"` // keys tracked for admission frequency, ~10x expected items
	MaxCost     int64 `yaml:"max_cost"`     // bytes
	BufferItems int64 `yaml:"buffer_items"` // keys per Get buffer
}

// DefaultCacheConfig returns a 64MiB cache.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:     true,
		NumCounters: 1e5,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

const (
	entryPrefix = "v|"
	linkPrefix  = "l|"
)

var _ Backend = (*cachedBackend)(nil)

// cachedBackend serves repeated reads from a ristretto cache. Entries and
// records never change once written, so a cached hit is never stale. Misses
// are not cached: an absent key may be written at any time.
type cachedBackend struct {
	inner Backend
	cache *ristretto.Cache[string, any]
}

// NewCachedBackend puts a read cache in front of inner.
func NewCachedBackend(inner Backend, cfg CacheConfig) (Backend, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &cachedBackend{inner: inner, cache: cache}, nil
}

func (c *cachedBackend) Load(ctx context.Context, key Key) ([]byte, error) {
	if v, ok := c.cache.Get(entryPrefix + string(key)); ok {
		return append([]byte(nil), v.([]byte)...), nil
	}
	raw, err := c.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(entryPrefix+string(key), append([]byte(nil), raw...), int64(len(raw))+1)
	return raw, nil
}

func (c *cachedBackend) InsertIfAbsent(ctx context.Context, key Key, raw []byte) (bool, error) {
	return c.inner.InsertIfAbsent(ctx, key, raw)
}

func (c *cachedBackend) LoadLink(ctx context.Context, key Key) (Key, error) {
	if v, ok := c.cache.Get(linkPrefix + string(key)); ok {
		return v.(Key), nil
	}
	target, err := c.inner.LoadLink(ctx, key)
	if err != nil {
		return "", err
	}
	c.cache.Set(linkPrefix+string(key), target, int64(len(target))+1)
	return target, nil
}

func (c *cachedBackend) LinkIfAbsent(ctx context.Context, key, target Key) (bool, error) {
	return c.inner.LinkIfAbsent(ctx, key, target)
}

// Close releases the cache and closes inner if it can be closed.
func (c *cachedBackend) Close() error {
	c.cache.Close()
	if closer, ok := c.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
