package lockfile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/licensecrawl/pkg/deps"
)

// PackageLock parses npm's package-lock.json and npm-shrinkwrap.json.
// Version 1 files list a nested "dependencies" tree; versions 2 and 3 list a
// flat "packages" map keyed by install path. Version 2 carries both, and
// the two are merged.
type PackageLock struct{}

func (p *PackageLock) Type() string { return "package-lock.json" }

func (p *PackageLock) Supports(name string) bool {
	return name == "package-lock.json" || name == "npm-shrinkwrap.json"
}

func (p *PackageLock) Parse(data []byte) ([]deps.Identity, error) {
	var lock packageLockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}
	if lock.LockfileVersion > 3 {
		return nil, fmt.Errorf("unsupported lockfileVersion %d", lock.LockfileVersion)
	}

	var out []deps.Identity
	for path, pkg := range lock.Packages {
		// "" is the project itself; paths outside node_modules are workspaces.
		if !strings.Contains(path, "node_modules/") || pkg.Link {
			continue
		}
		name := pkg.Name
		if name == "" {
			name = installedName(path)
		}
		if id, ok := lockedIdentity(name, pkg.Version, pkg.Resolved); ok {
			out = append(out, id)
		}
	}
	walkV1(lock.Dependencies, &out)
	return out, nil
}

func walkV1(m map[string]v1Dependency, out *[]deps.Identity) {
	for name, dep := range m {
		if id, ok := lockedIdentity(name, dep.Version, dep.Resolved); ok {
			*out = append(*out, id)
		}
		walkV1(dep.Dependencies, out)
	}
}

// installedName returns the package name of an install path such as
// "node_modules/a/node_modules/@s/b".
func installedName(path string) string {
	if i := strings.LastIndex(path, "node_modules/"); i >= 0 {
		return path[i+len("node_modules/"):]
	}
	return path
}

// lockedIdentity maps one locked package onto an identity. Git installs keep
// their repository and commit; everything else is the exact npm version.
func lockedIdentity(name, version, resolved string) (deps.Identity, bool) {
	if name == "" || version == "" {
		return deps.Identity{}, false
	}
	if id, ok := gitHubSource(name, resolved); ok {
		return id, true
	}
	return deps.ParseSpec(name, version)
}

// gitHubSource recognises a "resolved" URL pointing at a GitHub repository,
// including codeload tarballs of the form
// https://codeload.github.com/{owner}/{repo}/tar.gz/{ref}.
func gitHubSource(name, resolved string) (deps.Identity, bool) {
	if rest, ok := strings.CutPrefix(resolved, "https://codeload.github.com/"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) == 4 {
			return deps.GitHub(parts[0]+"/"+parts[1], parts[3]), true
		}
		return deps.Identity{}, false
	}
	if !strings.HasPrefix(resolved, "github:") && !strings.Contains(resolved, "github.com") {
		return deps.Identity{}, false
	}
	id, ok := deps.ParseSpec(name, resolved)
	return id, ok && id.Registry == deps.RegistryGitHub
}

type packageLockFile struct {
	Name            string                  `json:"name"`
	LockfileVersion int                     `json:"lockfileVersion"`
	Packages        map[string]lockPackage  `json:"packages"`
	Dependencies    map[string]v1Dependency `json:"dependencies"`
}

type lockPackage struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Resolved string `json:"resolved"`
	Link     bool   `json:"link"`
}

type v1Dependency struct {
	Version      string                  `json:"version"`
	Resolved     string                  `json:"resolved"`
	Dependencies map[string]v1Dependency `json:"dependencies"`
}
