// Package observability lets callers watch the resolver, the metadata cache
// and outgoing HTTP traffic without the libraries knowing who listens.
//
// Libraries emit events through [Resolve], [Cache] and [HTTP]. Until a
// listener is installed with [Install] those return no-ops:
//
//	stats := observability.NewStats()
//	restore := observability.Install(observability.Hooks{Resolve: stats, Cache: stats, HTTP: stats})
//	defer restore()
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// ResolveHooks receives resolver events. Workers call it concurrently.
// Identities are passed in their "<registry>:<name>@<version>" form.
type ResolveHooks interface {
	OnRunStart(ctx context.Context, runID string, seeds int)
	OnRunComplete(ctx context.Context, runID string, records int, duration time.Duration, err error)
	OnFetch(ctx context.Context, id string, attempt int)
	OnRetry(ctx context.Context, id, kind string, delay time.Duration)
	OnRecord(ctx context.Context, id, status string)
}

// CacheHooks receives metadata cache events keyed by client namespace.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, namespace string)
	OnCacheMiss(ctx context.Context, namespace string)
	OnCacheSet(ctx context.Context, namespace string, size int)
}

// HTTPHooks receives events for every registry request. OnError is called
// for transport failures only; non-2xx responses arrive through OnResponse.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, status int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

type NoopResolveHooks struct{}

func (NoopResolveHooks) OnRunStart(context.Context, string, int)                         {}
func (NoopResolveHooks) OnRunComplete(context.Context, string, int, time.Duration, error) {}
func (NoopResolveHooks) OnFetch(context.Context, string, int)                            {}
func (NoopResolveHooks) OnRetry(context.Context, string, string, time.Duration)          {}
func (NoopResolveHooks) OnRecord(context.Context, string, string)                        {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// Hooks is a set of listeners. Nil fields keep the listener already
// installed.
type Hooks struct {
	Resolve ResolveHooks
	Cache   CacheHooks
	HTTP    HTTPHooks
}

var noop = Hooks{Resolve: NoopResolveHooks{}, Cache: NoopCacheHooks{}, HTTP: NoopHTTPHooks{}}

var current atomic.Pointer[Hooks]

func init() { Reset() }

func load() *Hooks { return current.Load() }

// Install replaces the non-nil listeners in h and returns a function that
// restores the previous set.
func Install(h Hooks) (restore func()) {
	prev := load()
	next := *prev
	if h.Resolve != nil {
		next.Resolve = h.Resolve
	}
	if h.Cache != nil {
		next.Cache = h.Cache
	}
	if h.HTTP != nil {
		next.HTTP = h.HTTP
	}
	current.Store(&next)
	return func() { current.Store(prev) }
}

func Resolve() ResolveHooks { return load().Resolve }
func Cache() CacheHooks     { return load().Cache }
func HTTP() HTTPHooks       { return load().HTTP }

// Reset uninstalls every listener.
func Reset() {
	h := noop
	current.Store(&h)
}
