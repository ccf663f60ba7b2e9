package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nulzo/bifrost/internal/config"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// CacheService is a small byte-oriented cache with per-entry TTL. It backs
// upstream model-list caching; entries are opaque JSON blobs.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the cache backend named by the configuration. An unset type
// falls back to the in-process cache.
func New(cfg config.CacheConfig) (CacheService, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryCache(), nil
	case "redis":
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache type: %q", cfg.Type)
	}
}
