// Package lockfile extracts resolution seeds from JavaScript lockfiles.
//
// A lockfile pins every package of a project's install tree. Each pinned
// package becomes one seed [deps.Identity]; the resolver then walks each
// seed's published dependencies to fill in anything the lockfile omits.
//
// Supported formats:
//
//   - package-lock.json and npm-shrinkwrap.json, lockfileVersion 1 to 3
//   - yarn.lock, classic (v1) and berry (v2+)
//
// Workspace and local packages (file:, link:, 0.0.0-use.local) are skipped.
package lockfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

// Parser reads one lockfile format.
type Parser interface {
	// Type names the format, e.g. "package-lock.json".
	Type() string
	// Supports reports whether the parser handles files called filename.
	Supports(filename string) bool
	// Parse extracts the locked packages from data.
	Parse(data []byte) ([]deps.Identity, error)
}

// Lockfile is a parsed lockfile.
type Lockfile struct {
	Path  string
	Type  string
	Seeds []deps.Identity // Sorted, without duplicates
}

var parsers = []Parser{&PackageLock{}, &YarnLock{}}

// Parsers returns the supported parsers.
func Parsers() []Parser { return slices.Clone(parsers) }

// ParserFor returns the parser handling filename, or false.
func ParserFor(filename string) (Parser, bool) {
	for _, p := range parsers {
		if p.Supports(filename) {
			return p, true
		}
	}
	return nil, false
}

// Load reads and parses the lockfile at path.
func Load(path string) (*Lockfile, error) {
	name := filepath.Base(path)
	if err := apperr.ValidateLockfileName(name); err != nil {
		return nil, err
	}
	p, ok := ParserFor(name)
	if !ok {
		return nil, apperr.New(apperr.ErrCodeInvalidLockfile, "unsupported lockfile: %s", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "lockfile not found: %s", path)
		}
		return nil, apperr.Wrap(apperr.ErrCodeInvalidLockfile, err, "reading %s", path)
	}
	seeds, err := p.Parse(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidLockfile, err, "parsing %s", path)
	}
	return &Lockfile{Path: path, Type: p.Type(), Seeds: dedupe(seeds)}, nil
}

// skipDirs are never descended into by [Find].
var skipDirs = map[string]bool{
	"node_modules": true,
	".yarn":        true,
	".git":         true,
}

// Find returns the supported lockfiles at root. root may name a lockfile
// directly. For a directory, the lockfiles directly inside it are returned,
// or with recursive set, every lockfile below it outside node_modules, .yarn
// and .git. Paths are sorted.
func Find(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "path not found: %s", root)
		}
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "cannot read %s", root)
	}
	if !info.IsDir() {
		if _, ok := ParserFor(info.Name()); !ok {
			return nil, apperr.New(apperr.ErrCodeInvalidLockfile, "unsupported lockfile: %s", info.Name())
		}
		return []string{root}, nil
	}

	var found []string
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "cannot read %s", root)
		}
		for _, e := range entries {
			if _, ok := ParserFor(e.Name()); ok && !e.IsDir() {
				found = append(found, filepath.Join(root, e.Name()))
			}
		}
		return found, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := ParserFor(d.Name()); ok {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "walking %s", root)
	}
	sort.Strings(found)
	return found, nil
}

func dedupe(ids []deps.Identity) []deps.Identity {
	seen := make(map[deps.Identity]struct{}, len(ids))
	out := make([]deps.Identity, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
