package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	"github.com/matzehuels/licensecrawl/pkg/integrations"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

const rawMediaType = "application/vnd.github.v3.raw"

// licenseFiles are tried in order when a manifest declares no license.
var licenseFiles = []string{"LICENSE", "LICENSE.md", "LICENSE.txt", "LICENCE", "COPYING"}

// Client reads single files from GitHub repositories through the contents
// API. No archives or clones are downloaded.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub client. token may be empty for anonymous
// access, which GitHub limits to 60 requests per hour.
func NewClient(c cache.Cache, token string, ttl time.Duration) *Client {
	headers := map[string]string{
		"Accept":               "application/vnd.github.v3+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(c, "github:", ttl, headers),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// FetchManifest reads package.json of owner/repo at ref. An empty ref or
// "HEAD" selects the default branch.
func (c *Client) FetchManifest(ctx context.Context, owner, repo, ref string, refresh bool) (*Manifest, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	key := owner + "/" + repo + "@" + ref

	var m Manifest
	err := c.Cached(ctx, key, refresh, &m, func() error {
		data, err := c.raw(ctx, owner, repo, "package.json", ref)
		if err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return fmt.Errorf("%w: %s/%s@%s has no package.json", err, owner, repo, ref)
			}
			return err
		}
		return parseManifest(data, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FetchLicense returns the first license file found at the repository root
// at ref, or [integrations.ErrNotFound] when there is none.
func (c *Client) FetchLicense(ctx context.Context, owner, repo, ref string, refresh bool) (*LicenseFile, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	key := "license:" + owner + "/" + repo + "@" + ref

	var lf LicenseFile
	err := c.Cached(ctx, key, refresh, &lf, func() error {
		for _, name := range licenseFiles {
			data, err := c.raw(ctx, owner, repo, name, ref)
			if errors.Is(err, integrations.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			lf = LicenseFile{Path: name, Text: string(data)}
			return nil
		}
		return fmt.Errorf("%w: %s/%s@%s has no license file", integrations.ErrNotFound, owner, repo, ref)
	})
	if err != nil {
		return nil, err
	}
	return &lf, nil
}

func (c *Client) raw(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)
	if ref != "" && ref != "HEAD" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return c.GetBytes(ctx, u, map[string]string{"Accept": rawMediaType})
}

func parseManifest(data []byte, m *Manifest) error {
	var pj packageJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return fmt.Errorf("%w: package.json: %v", integrations.ErrMalformed, err)
	}
	*m = Manifest{
		Name:         pj.Name,
		Version:      pj.Version,
		License:      declaredLicense(pj.License, pj.Licenses),
		Dependencies: pj.Dependencies,
		Private:      pj.Private,
	}
	if s, ok := pj.Deprecated.(string); ok {
		m.Deprecated = s
	}
	return nil
}

func declaredLicense(license any, legacy []any) string {
	if s := strings.TrimSpace(field(license, "type")); s != "" {
		return s
	}
	if len(legacy) > 0 {
		return strings.TrimSpace(field(legacy[0], "type"))
	}
	return ""
}

func field(v any, name string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[name].(string); ok {
			return s
		}
	}
	return ""
}
