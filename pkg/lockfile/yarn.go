package lockfile

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/licensecrawl/pkg/deps"
)

// YarnLock parses yarn.lock. Classic (v1) lockfiles use yarn's own
// indentation format; berry lockfiles are YAML and start with a
// __metadata entry.
type YarnLock struct{}

func (y *YarnLock) Type() string              { return "yarn.lock" }
func (y *YarnLock) Supports(name string) bool { return name == "yarn.lock" }

func (y *YarnLock) Parse(data []byte) ([]deps.Identity, error) {
	if isBerry(data) {
		return parseBerry(data)
	}
	return parseClassic(data)
}

func isBerry(data []byte) bool {
	for line := range bytes.Lines(data) {
		if bytes.HasPrefix(line, []byte("__metadata:")) {
			return true
		}
	}
	return false
}

type classicEntry struct {
	descriptor string
	version    string
	resolved   string
}

func parseClassic(data []byte) ([]deps.Identity, error) {
	var (
		out     []deps.Identity
		current *classicEntry
		lineNo  int
	)
	flush := func() {
		if current == nil {
			return
		}
		if id, ok := classicIdentity(*current); ok {
			out = append(out, id)
		}
		current = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if !strings.HasPrefix(line, " ") {
			if !strings.HasSuffix(trimmed, ":") {
				return nil, fmt.Errorf("line %d: expected entry header, got %q", lineNo, trimmed)
			}
			flush()
			first, _, _ := strings.Cut(strings.TrimSuffix(trimmed, ":"), ",")
			current = &classicEntry{descriptor: unquote(first)}
			continue
		}

		// Only the entry's own fields, indented by exactly two spaces.
		if current == nil || strings.HasPrefix(line, "    ") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, " ")
		if !ok {
			continue
		}
		switch key {
		case "version":
			current.version = unquote(value)
		case "resolved":
			current.resolved = unquote(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

func classicIdentity(e classicEntry) (deps.Identity, bool) {
	name, spec := splitDescriptor(e.descriptor)
	if name == "" {
		return deps.Identity{}, false
	}
	if id, ok := gitHubSource(name, e.resolved); ok {
		return id, true
	}
	id, ok := deps.ParseSpec(name, spec)
	if !ok {
		return deps.Identity{}, false
	}
	if id.Registry == deps.RegistryNPM && e.version != "" {
		return deps.ParseSpec(id.Name, e.version)
	}
	return id, true
}

type berryEntry struct {
	Version    string `yaml:"version"`
	Resolution string `yaml:"resolution"`
	LinkType   string `yaml:"linkType"`
}

func parseBerry(data []byte) ([]deps.Identity, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var out []deps.Identity
	for key, node := range doc {
		if key == "__metadata" {
			continue
		}
		var e berryEntry
		if err := node.Decode(&e); err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		if e.LinkType == "soft" || strings.Contains(e.Version, "use.local") {
			continue
		}
		if id, ok := berryIdentity(key, e); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func berryIdentity(key string, e berryEntry) (deps.Identity, bool) {
	resolution := e.Resolution
	if resolution == "" {
		first, _, _ := strings.Cut(key, ",")
		resolution = strings.TrimSpace(first)
	}
	name, spec := splitDescriptor(resolution)
	if name == "" {
		return deps.Identity{}, false
	}
	if strings.HasPrefix(spec, "npm:") {
		if e.Version == "" {
			return deps.Identity{}, false
		}
		return deps.NPM(name, e.Version), true
	}
	if id, ok := gitHubSource(name, spec); ok {
		return id, true
	}
	return deps.ParseSpec(name, spec)
}

// splitDescriptor splits "name@spec" where name may be scoped.
func splitDescriptor(d string) (name, spec string) {
	if len(d) < 2 {
		return "", ""
	}
	i := strings.Index(d[1:], "@")
	if i < 0 {
		return d, ""
	}
	return d[:i+1], d[i+2:]
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}
