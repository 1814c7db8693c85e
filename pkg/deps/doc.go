// Package deps resolves the transitive dependency graph of a project and
// collects one license [Record] per package version.
//
// # Overview
//
// Resolution starts from the seed identities found in a lockfile. A fixed
// pool of workers pops identities from a shared [Queue], fetches their
// metadata through a [Fetcher], and turns it into a record plus the
// identities of the declared runtime dependencies ([Expand]). Children go
// through the [Ledger] first, so each identity is fetched at most once per
// run no matter how many parents declare it or how cyclic the graph is.
//
//	resolver := deps.NewResolver(deps.Registries{
//	    deps.RegistryNPM:    npm.NewFetcher(npmClient),
//	    deps.RegistryGitHub: github.NewFetcher(ghClient),
//	}, deps.Options{Workers: 8})
//
//	res, err := resolver.Resolve(ctx, seeds)
//	for _, rec := range res.Records {
//	    fmt.Println(rec.ID, rec.License)
//	}
//
// # Termination
//
// The queue counts identities that were popped but not yet finished. A
// worker pushes all children of an identity before marking it done, so the
// queue can only be empty with nothing in flight once the whole reachable
// graph has been processed. At that point the queue closes and every worker
// returns.
//
// # Failures
//
// Fetchers report [*FetchError] values. Transient and rate-limited failures
// are retried with exponential backoff; not-found and malformed ones are
// final. Whatever the outcome, the identity still yields a record, with
// license [UnknownLicense] and a [Status] naming the failure. Cancelling the
// context stops the run; admitted identities that were never fetched are
// reported as cancelled.
//
// # Identities
//
// [ParseSpec] maps declared dependency specifiers onto identities: semver
// ranges become the npm version they name ([NormalizeVersion]), GitHub
// shorthands and git URLs become GitHub identities, and local or workspace
// links are skipped.
package deps
