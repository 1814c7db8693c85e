package deps

import (
	"fmt"
	"strings"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

// Registry tags the source a package identity is fetched from.
type Registry string

const (
	RegistryNPM    Registry = "npm"
	RegistryGitHub Registry = "github"
)

// DefaultRef is the git reference used when a GitHub dependency names none.
const DefaultRef = "HEAD"

// Identity is the dedup key of the resolver. Two identities are the same
// package only when registry, name and version all match, so "npm:x@1.0.0"
// and "github:x@1.0.0" are distinct.
//
// For GitHub identities Name is "owner/repo" and Version is the git ref.
type Identity struct {
	Registry Registry
	Name     string
	Version  string
}

// NPM returns the identity of an npm package version.
func NPM(name, version string) Identity {
	return Identity{Registry: RegistryNPM, Name: name, Version: version}
}

// GitHub returns the identity of a repository at a ref. An empty ref
// becomes [DefaultRef].
func GitHub(repo, ref string) Identity {
	if ref == "" {
		ref = DefaultRef
	}
	return Identity{Registry: RegistryGitHub, Name: repo, Version: ref}
}

// String renders the identity as "<registry>:<name>@<version>".
func (id Identity) String() string {
	return string(id.Registry) + ":" + id.Name + "@" + id.Version
}

// HomeURL links to the package page of the identity.
func (id Identity) HomeURL() string {
	switch id.Registry {
	case RegistryNPM:
		return "https://www.npmjs.com/package/" + id.Name + "/v/" + id.Version
	case RegistryGitHub:
		return "https://github.com/" + id.Name + "/tree/" + id.Version
	default:
		return ""
	}
}

// Validate checks that the identity is safe to put into a registry URL.
func (id Identity) Validate() error {
	switch id.Registry {
	case RegistryNPM:
		if err := apperr.ValidateNpmPackageName(id.Name); err != nil {
			return err
		}
		if id.Version == "" || strings.ContainsAny(id.Version, "/\\ ") {
			return apperr.New(apperr.ErrCodeInvalidPackage, "invalid npm version %q for %s", id.Version, id.Name)
		}
		return nil
	case RegistryGitHub:
		if err := apperr.ValidateGitHubRepo(id.Name); err != nil {
			return err
		}
		return apperr.ValidateGitRef(id.Version)
	default:
		return apperr.New(apperr.ErrCodeUnsupported, "unsupported registry %q", id.Registry)
	}
}

// ParseIdentity parses the "<registry>:<name>@<version>" form produced by
// [Identity.String]. The version separator is the last "@" that is not the
// leading character of a scoped npm name.
func ParseIdentity(s string) (Identity, error) {
	reg, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Identity{}, apperr.New(apperr.ErrCodeInvalidInput, "identity %q: missing registry", s)
	}
	at := strings.LastIndex(rest, "@")
	if at <= 0 || at == len(rest)-1 {
		return Identity{}, apperr.New(apperr.ErrCodeInvalidInput, "identity %q: missing version", s)
	}
	id := Identity{Registry: Registry(reg), Name: rest[:at], Version: rest[at+1:]}
	switch id.Registry {
	case RegistryNPM, RegistryGitHub:
	default:
		return Identity{}, apperr.New(apperr.ErrCodeUnsupported, "identity %q: unknown registry %q", s, reg)
	}
	return id, nil
}

// MustParseIdentity is like ParseIdentity but panics on error.
// Intended for tests and literals.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(fmt.Sprintf("deps: %v", err))
	}
	return id
}
