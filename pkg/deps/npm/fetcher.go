// Package npm fetches dependency metadata from the npm registry.
package npm

import (
	"context"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	npmapi "github.com/matzehuels/licensecrawl/pkg/integrations/npm"
)

// Fetcher implements [deps.Fetcher] for npm identities.
type Fetcher struct {
	client  *npmapi.Client
	refresh bool
}

// NewFetcher wraps client. With refresh set, cached documents are ignored.
func NewFetcher(client *npmapi.Client, refresh bool) *Fetcher {
	return &Fetcher{client: client, refresh: refresh}
}

// Fetch reads the version document of id.
func (f *Fetcher) Fetch(ctx context.Context, id deps.Identity) (*deps.Metadata, error) {
	info, err := f.client.FetchVersion(ctx, id.Name, id.Version, f.refresh)
	if err != nil {
		return nil, deps.Classify(id, err)
	}
	return &deps.Metadata{
		Name:         info.Name,
		Version:      info.Version,
		License:      info.License,
		Deprecated:   info.Deprecated,
		Dependencies: deps.Dependencies(info.Dependencies),
	}, nil
}
