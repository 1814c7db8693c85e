package github

// Manifest is the subset of a repository's package.json licensecrawl reads.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	License      string            `json:"license,omitempty"`
	Deprecated   string            `json:"deprecated,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Private      bool              `json:"private,omitempty"`
}

// LicenseFile is a license text found next to the manifest.
type LicenseFile struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// packageJSON mirrors the raw manifest. license and licenses take several
// historical shapes.
type packageJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	License      any               `json:"license"`
	Licenses     []any             `json:"licenses"`
	Deprecated   any               `json:"deprecated"`
	Dependencies map[string]string `json:"dependencies"`
	Private      bool              `json:"private"`
}
