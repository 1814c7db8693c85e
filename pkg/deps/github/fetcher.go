// Package github fetches dependency metadata for packages installed straight
// from GitHub repositories.
package github

import (
	"context"
	"errors"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	"github.com/matzehuels/licensecrawl/pkg/deps/license"
	"github.com/matzehuels/licensecrawl/pkg/integrations"
	ghapi "github.com/matzehuels/licensecrawl/pkg/integrations/github"
)

// Fetcher implements [deps.Fetcher] for GitHub identities, whose name is
// "owner/repo" and whose version is a git ref.
type Fetcher struct {
	client        *ghapi.Client
	refresh       bool
	detectLicense bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRefresh ignores cached manifests.
func WithRefresh(refresh bool) Option {
	return func(f *Fetcher) { f.refresh = refresh }
}

// WithLicenseDetection makes the fetcher read the repository's LICENSE file
// when package.json declares no license.
func WithLicenseDetection(on bool) Option {
	return func(f *Fetcher) { f.detectLicense = on }
}

// NewFetcher wraps client. License detection is on by default.
func NewFetcher(client *ghapi.Client, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, detectLicense: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads package.json of the repository at the identity's ref.
func (f *Fetcher) Fetch(ctx context.Context, id deps.Identity) (*deps.Metadata, error) {
	owner, repo, err := ghapi.ParseRepoRef(id.Name)
	if err != nil {
		return nil, deps.NewFetchError(deps.KindMalformed, id, err)
	}

	m, err := f.client.FetchManifest(ctx, owner, repo, id.Version, f.refresh)
	if err != nil {
		return nil, deps.Classify(id, err)
	}

	md := &deps.Metadata{
		Name:         m.Name,
		Version:      m.Version,
		License:      m.License,
		Deprecated:   m.Deprecated,
		Dependencies: deps.Dependencies(m.Dependencies),
	}
	if md.License == "" && f.detectLicense {
		if err := f.detect(ctx, owner, repo, id.Version, md); err != nil {
			return nil, deps.Classify(id, err)
		}
	}
	return md, nil
}

// detect fills md.License from a LICENSE file. A repository without one
// leaves the license unknown; any other failure is returned so the fetch
// can be retried.
func (f *Fetcher) detect(ctx context.Context, owner, repo, ref string, md *deps.Metadata) error {
	lf, err := f.client.FetchLicense(ctx, owner, repo, ref, f.refresh)
	if errors.Is(err, integrations.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if id, ok := license.Detect(lf.Text); ok {
		md.License = id
		md.Detail = "license detected from " + lf.Path
	}
	return nil
}
