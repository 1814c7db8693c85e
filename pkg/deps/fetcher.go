package deps

import (
	"context"
	"fmt"
)

// Fetcher retrieves package metadata for one identity. Implementations
// return *FetchError so the resolver can tell retryable failures apart.
// They must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, id Identity) (*Metadata, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, id Identity) (*Metadata, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, id Identity) (*Metadata, error) {
	return f(ctx, id)
}

// Registries dispatches each identity to the fetcher of its registry.
type Registries map[Registry]Fetcher

// Fetch implements [Fetcher]. Identities of an unregistered registry fail
// as malformed.
func (r Registries) Fetch(ctx context.Context, id Identity) (*Metadata, error) {
	f, ok := r[id.Registry]
	if !ok || f == nil {
		return nil, NewFetchError(KindMalformed, id, fmt.Errorf("no fetcher for registry %q", id.Registry))
	}
	return f.Fetch(ctx, id)
}
