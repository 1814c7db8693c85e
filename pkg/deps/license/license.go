// Package license normalizes, classifies and checks license identifiers.
//
// Registries report licenses in many spellings ("mit", "Apache 2.0",
// "BSD"). [Normalize] folds the common aliases onto SPDX identifiers and
// [URL] maps well-known identifiers to their reference text. When a
// manifest has no license field, [Detect] classifies the text of a LICENSE
// file. [Policy] evaluates identifiers against an allow-list with wildcard
// patterns.
package license

import "strings"

// Unknown is the license reported when none could be determined.
const Unknown = "UNKNOWN"

var aliases = map[string]string{
	"mit":                "MIT",
	"mit license":        "MIT",
	"apache2":            "Apache-2.0",
	"apache 2":           "Apache-2.0",
	"apache2.0":          "Apache-2.0",
	"apache 2.0":         "Apache-2.0",
	"apache-2":           "Apache-2.0",
	"apache license 2.0": "Apache-2.0",
	"bsd":                "BSD-3-Clause",
	"bsd-3":              "BSD-3-Clause",
	"bsd-2":              "BSD-2-Clause",
	"gpl":                "GPL-3.0",
	"gpl3":               "GPL-3.0",
	"gplv3":              "GPL-3.0",
	"gpl-3":              "GPL-3.0",
	"gpl2":               "GPL-2.0",
	"gplv2":              "GPL-2.0",
	"gpl-2":              "GPL-2.0",
	"isc license":        "ISC",
	"public domain":      "Unlicense",
}

// Normalize trims s and maps known aliases to their SPDX identifier.
// Unrecognised values are returned trimmed but otherwise verbatim.
// An empty input yields an empty string.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if id, ok := aliases[strings.ToLower(s)]; ok {
		return id
	}
	return s
}
