package deps

import (
	"sort"
	"strings"

	"github.com/matzehuels/licensecrawl/pkg/deps/license"
)

// Expand turns fetched metadata into the record of id and the identities of
// its runtime dependencies. The declared license is kept as written; alias
// folding only applies when looking up its URL and when checking policy.
// Expand has no side effects. Deduplication of the children is left to the
// resolver's ledger.
//
// Children are sorted by identity string so enqueue order is reproducible.
func Expand(id Identity, md *Metadata) (Record, []Identity) {
	rec := newRecord(id)
	if md == nil {
		rec.Status = StatusUnknown
		return rec, nil
	}

	if lic := strings.TrimSpace(md.License); lic != "" {
		rec.License = lic
		rec.Status = StatusOK
	} else {
		rec.Status = StatusUnknown
	}
	rec.Expiration = md.Deprecated
	rec.Detail = md.Detail
	if md.URL != "" {
		rec.URL = md.URL
	}
	rec.LicenseURL = md.LicenseURL
	if rec.LicenseURL == "" && rec.Status == StatusOK {
		rec.LicenseURL = license.URL(rec.License)
	}

	seen := make(map[Identity]struct{}, len(md.Dependencies))
	children := make([]Identity, 0, len(md.Dependencies))
	for _, dep := range md.Dependencies {
		child, ok := ParseSpec(dep.Name, dep.Spec)
		if !ok || child == id {
			continue
		}
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		children = append(children, child)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].String() < children[j].String() })
	return rec, children
}

// Degrade builds the record of an identity whose fetch failed.
func Degrade(id Identity, err error) Record {
	rec := newRecord(id)
	rec.Status = KindOf(err).Status()
	if err != nil {
		rec.Detail = err.Error()
	}
	return rec
}

// Cancelled builds the record of an admitted identity the run never processed.
func Cancelled(id Identity) Record {
	rec := newRecord(id)
	rec.Status = StatusCancelled
	rec.Detail = "run cancelled before fetch"
	return rec
}
