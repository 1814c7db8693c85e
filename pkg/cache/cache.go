// Package cache provides byte-level caching backends for registry responses.
//
// Four backends implement [Cache]:
//   - [FileCache]: one file per entry under a directory, used by the CLI
//   - [RedisCache]: a shared cache for the `serve` command or CI fleets
//   - [MemoryCache]: a bounded in-process LRU
//   - [NullCache]: disables caching
//
// Use [Open] to select a backend from a cache location ("", "off",
// "memory", a directory path, or a redis:// URL). [Prefixed] scopes all keys
// of a backend under a namespace so several registries can share one store.
// [Layered] puts a [MemoryCache] in front of a slower backend.
//
// Caches hold registry metadata only. Resolution state (which packages were
// admitted, which are pending) is never persisted between runs.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores opaque byte payloads with a TTL.
//
// Get reports a miss as (nil, false, nil). Implementations must be safe for
// concurrent use because every resolver worker shares the same cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultDir returns the default on-disk cache location,
// $XDG_CACHE_HOME/licensecrawl or ~/.cache/licensecrawl.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "licensecrawl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "licensecrawl"), nil
}

// Open returns the backend described by location:
//   - "off" or "none": [NullCache]
//   - "memory": [MemoryCache] with [DefaultMemoryEntries]
//   - "redis://..." or "rediss://...": [RedisCache]
//   - "": [FileCache] in [DefaultDir]
//   - anything else: [FileCache] rooted at that directory
func Open(ctx context.Context, location string) (Cache, error) {
	switch {
	case location == "off" || location == "none":
		return NewNullCache(), nil
	case location == "memory":
		c, err := NewMemoryCache(DefaultMemoryEntries)
		if err != nil {
			return nil, err
		}
		return c, nil
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		c, err := NewRedisCache(ctx, location)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	dir := location
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	c, err := NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return c, nil
}
