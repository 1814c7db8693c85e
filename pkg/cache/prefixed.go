package cache

import (
	"context"
	"time"
)

// Prefixed scopes every key of inner under prefix. Closing a Prefixed cache
// does not close inner, so several views can share one backend.
//
//	npmCache := cache.Prefixed(shared, "npm:")
//	ghCache := cache.Prefixed(shared, "github:")
func Prefixed(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &prefixed{inner: inner, prefix: prefix}
}

type prefixed struct {
	inner  Cache
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return p.inner.Set(ctx, p.prefix+key, data, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Close() error { return nil }
