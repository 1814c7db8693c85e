// Package integrations provides HTTP clients for the registries licensecrawl
// reads package metadata from.
//
//   - [npm]: the npm registry, one version document per fetch
//   - [github]: repository manifests (package.json, LICENSE) at a git ref
//
// # Client Pattern
//
// Registry clients embed the shared [Client]:
//
//	shared, _ := cache.Open(ctx, "")
//	client := npm.NewClient(cache.Prefixed(shared, "npm:"), 24*time.Hour)
//	client.SetLimiter(integrations.NewLimiter(20, 20))
//	info, err := client.FetchVersion(ctx, "left-pad", "1.3.0", false)
//
// [Client] handles:
//   - response caching through [cache.Cache]
//   - rate limiting with a shared [rate.Limiter]
//   - status mapping: 404 is [ErrNotFound]; 5xx and network failures are
//     [cache.RetryableError]; 429 and exhausted 403 quotas are
//     pkg/errors RateLimitedError values carrying the requested wait
//
// Clients never retry on their own. The resolver in pkg/deps owns retry
// policy so backoff is applied once, per identity.
package integrations
