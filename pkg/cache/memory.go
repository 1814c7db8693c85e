package cache

import (
	"bytes"
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries is the in-process LRU size used when none is configured.
const DefaultMemoryEntries = 2048

// MemoryCache is a bounded in-process LRU. Entries expire individually;
// expired entries are dropped on read.
type MemoryCache struct {
	lru *lru.Cache[string, memEntry]
}

type memEntry struct {
	data    []byte
	expires time.Time // Zero for no expiry
}

// NewMemoryCache returns an LRU holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	l, err := lru.New[string, memEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	e := memEntry{data: bytes.Clone(data)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int { return c.lru.Len() }

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

// Layered reads through front before back. Hits in back are copied into
// front with frontTTL; writes go to both. Close closes both layers.
func Layered(front, back Cache, frontTTL time.Duration) Cache {
	return &layered{front: front, back: back, ttl: frontTTL}
}

type layered struct {
	front, back Cache
	ttl         time.Duration
}

func (l *layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := l.front.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := l.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.front.Set(ctx, key, data, l.ttl)
	return data, true, nil
}

func (l *layered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	frontTTL := l.ttl
	if ttl > 0 && (frontTTL <= 0 || ttl < frontTTL) {
		frontTTL = ttl
	}
	_ = l.front.Set(ctx, key, data, frontTTL)
	return l.back.Set(ctx, key, data, ttl)
}

func (l *layered) Delete(ctx context.Context, key string) error {
	return errors.Join(l.front.Delete(ctx, key), l.back.Delete(ctx, key))
}

func (l *layered) Close() error {
	return errors.Join(l.front.Close(), l.back.Close())
}
