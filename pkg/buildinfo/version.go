// Package buildinfo reports the version of the running binary.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/licensecrawl/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/licensecrawl/pkg/buildinfo.Commit=$(git rev-parse HEAD)"
//
// Binaries built with "go install" fall back to the module version and VCS
// settings recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fill sync.Once

// Info returns the version, commit and build date, consulting the embedded
// module information for whatever ldflags left unset.
func Info() (version, commit, date string) {
	fill.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
	return Version, Commit, Date
}

// Template returns the cobra version template.
func Template() string {
	v, c, d := Info()
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", v, c, d)
}

// UserAgent returns the User-Agent header sent to registries.
func UserAgent() string {
	v, _, _ := Info()
	return "licensecrawl/" + v
}
