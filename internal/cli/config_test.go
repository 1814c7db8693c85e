package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	npmapi "github.com/matzehuels/licensecrawl/pkg/integrations/npm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	path := writeConfig(t, `
workers = 3
timeout = "5m"
allowed = ["MIT", "BSD-*"]
cache = "redis://localhost:6379/1"
memory_cache = 0

[npm]
registry = "http://localhost:4873/"
rate_limit = 2.5

[github]
token = "from-file"
detect_license = false
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %s, want 5m", cfg.Timeout)
	}
	if len(cfg.Allowed) != 2 || cfg.Allowed[1] != "BSD-*" {
		t.Errorf("Allowed = %v", cfg.Allowed)
	}
	if cfg.NPM.Registry != "http://localhost:4873/" || cfg.NPM.RateLimit != 2.5 {
		t.Errorf("NPM = %+v", cfg.NPM)
	}
	if cfg.NPM.Burst != 20 {
		t.Errorf("NPM.Burst = %d, want default 20", cfg.NPM.Burst)
	}
	if cfg.GitHub.Token != "from-file" {
		t.Errorf("GitHub.Token = %q", cfg.GitHub.Token)
	}
	if cfg.detectLicense() {
		t.Error("detectLicense() = true, want false")
	}
	if cfg.MemoryCache != 0 {
		t.Errorf("MemoryCache = %d, want 0", cfg.MemoryCache)
	}
	if cfg.Retries != DefaultConfig().Retries {
		t.Errorf("Retries = %d, want default", cfg.Retries)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "from-env")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.NPM.Registry != npmapi.DefaultBaseURL {
		t.Errorf("NPM.Registry = %q", cfg.NPM.Registry)
	}
	if cfg.GitHub.Token != "from-env" {
		t.Errorf("GitHub.Token = %q, want GITHUB_TOKEN", cfg.GitHub.Token)
	}
	if !cfg.detectLicense() {
		t.Error("detectLicense() defaults to false")
	}
}

func TestLoadConfigDefaultLocation(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("workers = 11\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Workers != 11 {
		t.Errorf("Workers = %d, want 11", cfg.Workers)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "worker = 3\n"},
		{"bad syntax", "workers = \n"},
		{"zero workers", "workers = 0\n"},
		{"zero retries", "retries = 0\n"},
		{"negative memory cache", "memory_cache = -1\n"},
		{"bad registry", "[npm]\nregistry = \"ftp://example.com\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))
			if !apperr.Is(err, apperr.ErrCodeInvalidConfig) {
				t.Errorf("loadConfig error = %v, want INVALID_CONFIG", err)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if !apperr.Is(err, apperr.ErrCodeInvalidConfig) {
			t.Errorf("loadConfig error = %v, want INVALID_CONFIG", err)
		}
	})
}
