// Package pkg holds the libraries behind licensecrawl.
//
// Scanning a project flows through these packages:
//
//	lockfile.Load             seeds: every locked package
//	         ↓
//	deps.Resolver             breadth-first walk, one record per identity
//	         ↓
//	deps/npm, deps/github     registry fetchers
//	         ↓
//	integrations/...          HTTP clients, caching, rate limits
//	         ↓
//	report                    text, CSV, tree, graph, MongoDB
//
// Supporting packages:
//
//   - [cache]: file, Redis and no-op response caches
//   - [errors]: error codes and input validation
//   - [observability]: hooks for fetch, cache and run events
//   - [buildinfo]: version information set at link time
//
// A minimal resolution against the public npm registry:
//
//	client := npm.NewClient(nil, time.Hour)
//	r := deps.NewResolver(deps.Registries{
//	    deps.RegistryNPM: depnpm.NewFetcher(client, false),
//	}, deps.Options{})
//	res, err := r.Resolve(ctx, []deps.Identity{deps.NPM("left-pad", "1.3.0")})
package pkg
