package deps

import (
	"strings"
)

// localProtocols mark dependencies that live inside the project and have
// no registry entry.
var localProtocols = []string{"file:", "link:", "workspace:", "portal:", "patch:"}

// localVersion is the version yarn berry assigns to workspace packages.
const localVersion = "0.0.0-use.local"

var githubPrefixes = []string{
	"https://github.com/",
	"http://github.com/",
	"ssh://git@github.com/",
	"git://github.com/",
	"git@github.com:",
	"github.com/",
}

// ParseSpec turns a declared dependency (name plus version specifier as it
// appears in package.json) into the identity to resolve. It reports false
// for dependencies that cannot be fetched from a registry: local paths,
// workspace links and non-GitHub git or tarball URLs.
//
//	ParseSpec("left-pad", "^1.3.0")             // npm:left-pad@1.3.0
//	ParseSpec("y", "github:x/y#abc")            // github:x/y@abc
//	ParseSpec("y", "x/y")                       // github:x/y@HEAD
//	ParseSpec("lodash4", "npm:lodash@^4.17.21") // npm:lodash@4.17.21
//	ParseSpec("app", "workspace:*")             // dropped
func ParseSpec(name, spec string) (Identity, bool) {
	spec = strings.TrimSpace(spec)
	if spec == localVersion {
		return Identity{}, false
	}
	for _, p := range localProtocols {
		if strings.HasPrefix(spec, p) {
			return Identity{}, false
		}
	}
	if isLocalPath(spec) {
		return Identity{}, false
	}

	if rest, ok := strings.CutPrefix(spec, "npm:"); ok {
		real, version := splitNameVersion(rest)
		if real == "" {
			return Identity{}, false
		}
		return NPM(real, NormalizeVersion(version)), true
	}

	if rest, ok := strings.CutPrefix(spec, "github:"); ok {
		return parseRepoRef(rest)
	}

	if u, ok := strings.CutPrefix(spec, "git+"); ok {
		spec = u
	}
	if strings.Contains(spec, "://") || strings.HasPrefix(spec, "git@") || strings.HasPrefix(spec, "github.com/") {
		for _, p := range githubPrefixes {
			if rest, ok := strings.CutPrefix(spec, p); ok {
				return parseRepoRef(rest)
			}
		}
		return Identity{}, false
	}

	// "owner/repo" shorthand. Scoped names and ranges never contain a bare slash.
	if repo, _, _ := strings.Cut(spec, "#"); strings.Contains(repo, "/") &&
		!strings.HasPrefix(repo, "@") && !strings.ContainsAny(repo, " <>=^~|") {
		return parseRepoRef(spec)
	}

	if name == "" {
		return Identity{}, false
	}
	return NPM(name, NormalizeVersion(spec)), true
}

func isLocalPath(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/") || strings.HasPrefix(spec, "~/")
}

// parseRepoRef parses "owner/repo[.git][#ref]".
func parseRepoRef(s string) (Identity, bool) {
	repo, ref, _ := strings.Cut(s, "#")
	repo = strings.TrimSuffix(strings.TrimSuffix(repo, "/"), ".git")
	// "#semver:^1.2.0" asks for a tag range; resolve the repository head.
	if strings.HasPrefix(ref, "semver:") {
		ref = ""
	}
	// yarn berry writes "#commit=<sha>", "#head=<branch>" or "#tag=<tag>".
	for _, k := range []string{"commit=", "head=", "tag="} {
		if v, ok := strings.CutPrefix(ref, k); ok {
			ref = v
			break
		}
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Identity{}, false
	}
	return GitHub(owner+"/"+name, ref), true
}

// splitNameVersion splits "name@version" or "@scope/name@version".
func splitNameVersion(s string) (string, string) {
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return s, ""
	}
	return s[:at], s[at+1:]
}

// NormalizeVersion reduces a semver range to the single version that is
// fetched for it. Ranges are not solved: the lower bound of the first
// alternative is used.
//
//	"^1.2.3"          -> "1.2.3"
//	">=1.2.0 <2"      -> "1.2.0"
//	"1.x"             -> "1.0.0"
//	"~1.2"            -> "1.2.0"
//	"^1 || ^2"        -> "1.0.0"
//	"<2.0.0"          -> "latest"
//	"", "*", "latest" -> "latest"
//	"next"            -> "next" (dist-tag)
func NormalizeVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	if alt, _, ok := strings.Cut(spec, "||"); ok {
		spec = strings.TrimSpace(alt)
	}
	// An upper bound alone names no version inside the range.
	if strings.HasPrefix(spec, "<") {
		return "latest"
	}
	spec = strings.TrimLeft(spec, "^~=> ")
	if len(spec) > 1 && (spec[0] == 'v' || spec[0] == 'V') && spec[1] >= '0' && spec[1] <= '9' {
		spec = spec[1:]
	}
	if fields := strings.Fields(spec); len(fields) > 0 {
		spec = fields[0]
	} else {
		spec = ""
	}

	switch strings.ToLower(spec) {
	case "", "*", "x", "latest":
		return "latest"
	}
	if spec[0] < '0' || spec[0] > '9' {
		return spec
	}

	core, suffix := spec, ""
	if i := strings.IndexAny(spec, "-+"); i >= 0 {
		core, suffix = spec[:i], spec[i:]
	}
	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for i, p := range parts {
		if p == "" || p == "x" || p == "X" || p == "*" {
			parts[i] = "0"
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".") + suffix
}
