package npm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	"github.com/matzehuels/licensecrawl/pkg/integrations"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// VersionInfo is the subset of an npm version document licensecrawl reads.
type VersionInfo struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	License      string            `json:"license,omitempty"`
	Deprecated   string            `json:"deprecated,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Repository   string            `json:"repository,omitempty"`
	HomePage     string            `json:"homepage,omitempty"`
}

// Client fetches version documents from an npm-compatible registry.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a registry client. Responses are cached in c for ttl;
// pass nil to disable caching.
func NewClient(c cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(c, "npm:", ttl, map[string]string{"Accept": "application/json"}),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at a mirror or private registry.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// BaseURL returns the registry root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchVersion returns the document for name at version. version may be a
// dist-tag such as "latest". A document without name or version yields
// [integrations.ErrMalformed].
func (c *Client) FetchVersion(ctx context.Context, name, version string, refresh bool) (*VersionInfo, error) {
	name = strings.TrimSpace(name)
	key := name + "@" + version

	var info VersionInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetch(ctx, name, version, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, name, version string, info *VersionInfo) error {
	u := c.baseURL + "/" + integrations.EscapePackageName(name) + "/" + integrations.EscapePackageName(version)

	var data versionDetails
	if err := c.Get(ctx, u, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s@%s", err, name, version)
		}
		return err
	}
	if data.Name == "" || data.Version == "" {
		return fmt.Errorf("%w: npm document for %s@%s lacks name or version", integrations.ErrMalformed, name, version)
	}

	*info = VersionInfo{
		Name:         data.Name,
		Version:      data.Version,
		License:      declaredLicense(data.License, data.Licenses),
		Deprecated:   deprecation(data.Deprecated),
		Dependencies: data.Dependencies,
		Repository:   integrations.NormalizeRepoURL(extractField(data.Repository, "url")),
		HomePage:     data.HomePage,
	}
	return nil
}

// declaredLicense reads the modern "license" field, which is a string or a
// {type, url} object, and falls back to the first entry of the legacy
// "licenses" array.
func declaredLicense(license any, legacy []any) string {
	if s := strings.TrimSpace(extractField(license, "type")); s != "" {
		return s
	}
	if len(legacy) > 0 {
		return strings.TrimSpace(extractField(legacy[0], "type"))
	}
	return ""
}

// deprecation handles registries that publish "deprecated": true instead
// of a message.
func deprecation(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "deprecated"
		}
	}
	return ""
}

func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

type versionDetails struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	License      any               `json:"license"`
	Licenses     []any             `json:"licenses"`
	Deprecated   any               `json:"deprecated"`
	Repository   any               `json:"repository"`
	HomePage     string            `json:"homepage"`
	Dependencies map[string]string `json:"dependencies"`
}
