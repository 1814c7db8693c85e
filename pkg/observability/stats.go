package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats counts events from every hook. It is safe for concurrent use and
// can be installed for all three listeners at once.
type Stats struct {
	NoopResolveHooks

	requests   atomic.Int64
	httpErrors atomic.Int64
	throttled  atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64
	written    atomic.Int64
	retries    atomic.Int64
	fetches    atomic.Int64
}

// NewStats returns zeroed counters.
func NewStats() *Stats { return &Stats{} }

// Snapshot is a point-in-time copy of [Stats].
type Snapshot struct {
	Requests     int64 // HTTP requests sent
	HTTPErrors   int64 // Requests that failed below HTTP
	Throttled    int64 // 429 and 403 responses
	CacheHits    int64
	CacheMisses  int64
	CacheWritten int64 // Bytes written to the cache
	Fetches      int64 // Fetch attempts, including retries
	Retries      int64
}

// HitRate returns the fraction of cache lookups that hit, or 0 without
// lookups.
func (s Snapshot) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Requests:     s.requests.Load(),
		HTTPErrors:   s.httpErrors.Load(),
		Throttled:    s.throttled.Load(),
		CacheHits:    s.hits.Load(),
		CacheMisses:  s.misses.Load(),
		CacheWritten: s.written.Load(),
		Fetches:      s.fetches.Load(),
		Retries:      s.retries.Load(),
	}
}

func (s *Stats) OnFetch(context.Context, string, int) { s.fetches.Add(1) }
func (s *Stats) OnRetry(context.Context, string, string, time.Duration) {
	s.retries.Add(1)
}

func (s *Stats) OnCacheHit(context.Context, string)  { s.hits.Add(1) }
func (s *Stats) OnCacheMiss(context.Context, string) { s.misses.Add(1) }
func (s *Stats) OnCacheSet(_ context.Context, _ string, size int) {
	s.written.Add(int64(size))
}

func (s *Stats) OnRequest(context.Context, string, string, string) { s.requests.Add(1) }
func (s *Stats) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	if status == 429 || status == 403 {
		s.throttled.Add(1)
	}
}
func (s *Stats) OnError(context.Context, string, string, string, error) { s.httpErrors.Add(1) }
