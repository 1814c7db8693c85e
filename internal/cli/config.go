package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	"github.com/matzehuels/licensecrawl/pkg/deps"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	ghapi "github.com/matzehuels/licensecrawl/pkg/integrations/github"
	npmapi "github.com/matzehuels/licensecrawl/pkg/integrations/npm"
)

// Config is the optional config file. Command-line flags override it.
//
//	workers = 16
//	allowed = ["MIT", "Apache-2.0", "BSD-*"]
//	cache = "redis://localhost:6379/0"
//	memory_cache = 4096
//
//	[npm]
//	registry = "https://registry.npmjs.org"
//	rate_limit = 20
//
//	[github]
//	rate_limit = 1
type Config struct {
	Workers      int           `toml:"workers"`
	Retries      int           `toml:"retries"`
	Timeout      time.Duration `toml:"timeout"`
	FetchTimeout time.Duration `toml:"fetch_timeout"`
	MaxRetryWait time.Duration `toml:"max_retry_wait"`
	Allowed      []string      `toml:"allowed"`
	Cache        string        `toml:"cache"`
	CacheTTL     time.Duration `toml:"cache_ttl"`
	MemoryCache  int           `toml:"memory_cache"` // LRU entries in front of Cache, 0 to disable

	NPM    RegistryConfig `toml:"npm"`
	GitHub GitHubConfig   `toml:"github"`
	Mongo  MongoConfig    `toml:"mongo"`
}

// RegistryConfig configures the npm registry client.
type RegistryConfig struct {
	Registry  string  `toml:"registry"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second, 0 for unlimited
	Burst     int     `toml:"burst"`
}

// GitHubConfig configures the GitHub client.
type GitHubConfig struct {
	API           string  `toml:"api"`
	Token         string  `toml:"token"`
	RateLimit     float64 `toml:"rate_limit"`
	Burst         int     `toml:"burst"`
	DetectLicense *bool   `toml:"detect_license"`
}

// MongoConfig configures the optional report sink.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Workers:      deps.DefaultWorkers,
		Retries:      deps.DefaultMaxAttempts,
		FetchTimeout: deps.DefaultFetchTimeout,
		MaxRetryWait: deps.DefaultMaxRetryWait,
		CacheTTL:     deps.DefaultCacheTTL,
		MemoryCache:  cache.DefaultMemoryEntries,
		NPM: RegistryConfig{
			Registry:  npmapi.DefaultBaseURL,
			RateLimit: 20,
			Burst:     20,
		},
		GitHub: GitHubConfig{
			API:       ghapi.DefaultBaseURL,
			RateLimit: 5,
			Burst:     5,
		},
	}
}

// configPath returns the default config file location
// ($XDG_CONFIG_HOME/licensecrawl/config.toml).
func configPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// loadConfig reads path on top of the defaults. An empty path reads the
// default location, which may be absent. An explicit path must exist.
// GITHUB_TOKEN fills in the GitHub token when the file has none.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		p, err := configPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return cfg, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, apperr.New(apperr.ErrCodeInvalidConfig, "config %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Workers < 1:
		return apperr.New(apperr.ErrCodeInvalidConfig, "workers must be at least 1, got %d", c.Workers)
	case c.Retries < 1:
		return apperr.New(apperr.ErrCodeInvalidConfig, "retries must be at least 1, got %d", c.Retries)
	case c.Timeout < 0 || c.FetchTimeout < 0:
		return apperr.New(apperr.ErrCodeInvalidConfig, "timeouts must not be negative")
	case c.MemoryCache < 0:
		return apperr.New(apperr.ErrCodeInvalidConfig, "memory_cache must not be negative, got %d", c.MemoryCache)
	}
	for _, u := range []string{c.NPM.Registry, c.GitHub.API} {
		if err := apperr.ValidateURL(u); err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "registry URL %q", u)
		}
	}
	return nil
}

// detectLicense reports whether GitHub packages without a declared license
// get their LICENSE file classified. Defaults to true.
func (c Config) detectLicense() bool {
	return c.GitHub.DetectLicense == nil || *c.GitHub.DetectLicense
}
