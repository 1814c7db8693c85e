package deps

import "github.com/matzehuels/licensecrawl/pkg/deps/license"

// UnknownLicense is recorded when no license could be determined.
const UnknownLicense = license.Unknown

// Dependency is one entry of a manifest's runtime dependency list: the
// declared name and the raw version specifier.
type Dependency struct {
	Name string
	Spec string
}

// Metadata is what a [Fetcher] extracts from one registry response.
type Metadata struct {
	Name         string
	Version      string
	License      string // Declared license, empty when absent
	Deprecated   string // Deprecation notice; becomes the record's expiration
	Dependencies []Dependency
	URL          string // Package home, overrides Identity.HomeURL
	LicenseURL   string // Link to the license text, when the registry has one
	Detail       string // Extra provenance, e.g. "license detected from LICENSE"
}

// Status classifies how a record was obtained.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnknown     Status = "unknown" // fetched, but no license declared
	StatusNotFound    Status = "not_found"
	StatusMalformed   Status = "malformed"
	StatusRateLimited Status = "rate_limited"
	StatusTransient   Status = "transient"
	StatusCancelled   Status = "cancelled"
)

// Degraded reports whether the record was not backed by a successful fetch.
func (s Status) Degraded() bool {
	switch s {
	case StatusOK, StatusUnknown:
		return false
	default:
		return true
	}
}

// Record is the resolved license information of one identity. Records are
// values and are never modified after the resolver creates them.
type Record struct {
	Identity   Identity `json:"-" bson:"-"`
	ID         string   `json:"id" bson:"id"`
	Registry   Registry `json:"registry" bson:"registry"`
	Name       string   `json:"name" bson:"name"`
	Version    string   `json:"version" bson:"version"`
	License    string   `json:"license" bson:"license"`
	Expiration string   `json:"expiration,omitempty" bson:"expiration,omitempty"`
	Status     Status   `json:"status" bson:"status"`
	Detail     string   `json:"detail,omitempty" bson:"detail,omitempty"`
	URL        string   `json:"url,omitempty" bson:"url,omitempty"`
	LicenseURL string   `json:"license_url,omitempty" bson:"license_url,omitempty"`
	Attempts   int      `json:"attempts,omitempty" bson:"attempts,omitempty"`
}

func newRecord(id Identity) Record {
	return Record{
		Identity: id,
		ID:       id.String(),
		Registry: id.Registry,
		Name:     id.Name,
		Version:  id.Version,
		License:  UnknownLicense,
		URL:      id.HomeURL(),
	}
}

// Edge records that Parent declared a dependency on Child.
type Edge struct {
	Parent Identity
	Child  Identity
}
