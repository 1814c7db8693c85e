package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	"github.com/matzehuels/licensecrawl/pkg/deps"
	depgithub "github.com/matzehuels/licensecrawl/pkg/deps/github"
	"github.com/matzehuels/licensecrawl/pkg/deps/license"
	depnpm "github.com/matzehuels/licensecrawl/pkg/deps/npm"
	"github.com/matzehuels/licensecrawl/pkg/integrations"
	ghapi "github.com/matzehuels/licensecrawl/pkg/integrations/github"
	npmapi "github.com/matzehuels/licensecrawl/pkg/integrations/npm"
)

// engine bundles what every resolution needs: the metadata cache and the
// registry fetchers. The fetchers hold the per-registry rate limiters, so
// all resolvers built from one engine share them.
type engine struct {
	cfg     Config
	cache   cache.Cache
	fetcher deps.Registries
	policy  *license.Policy
	logger  *log.Logger
}

// memoryCacheTTL bounds how long the in-process layer serves an entry it
// copied from the backing cache.
const memoryCacheTTL = 10 * time.Minute

// newEngine opens the cache named by cfg.Cache and builds the registry
// clients. refresh bypasses cached responses.
func newEngine(ctx context.Context, cfg Config, logger *log.Logger, refresh bool) (*engine, error) {
	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	if cfg.MemoryCache > 0 {
		if _, isMem := c.(*cache.MemoryCache); !isMem {
			mem, err := cache.NewMemoryCache(cfg.MemoryCache)
			if err != nil {
				c.Close()
				return nil, err
			}
			c = cache.Layered(mem, c, memoryCacheTTL)
		}
	}

	shared := cache.Prefixed(c, appName+":")
	npmClient := npmapi.NewClient(shared, cfg.CacheTTL).WithBaseURL(cfg.NPM.Registry)
	npmClient.SetLimiter(integrations.NewLimiter(cfg.NPM.RateLimit, cfg.NPM.Burst))

	ghClient := ghapi.NewClient(shared, cfg.GitHub.Token, cfg.CacheTTL).WithBaseURL(cfg.GitHub.API)
	ghClient.SetLimiter(integrations.NewLimiter(cfg.GitHub.RateLimit, cfg.GitHub.Burst))
	if cfg.GitHub.Token == "" {
		logger.Debug("GITHUB_TOKEN not set, GitHub requests are anonymous")
	}

	return &engine{
		cfg:   cfg,
		cache: c,
		fetcher: deps.Registries{
			deps.RegistryNPM: depnpm.NewFetcher(npmClient, refresh),
			deps.RegistryGitHub: depgithub.NewFetcher(ghClient,
				depgithub.WithRefresh(refresh),
				depgithub.WithLicenseDetection(cfg.detectLicense())),
		},
		policy: license.NewPolicy(cfg.Allowed),
		logger: logger,
	}, nil
}

// resolver returns a resolver over the engine's fetchers. onRecord may be nil.
func (e *engine) resolver(onRecord func(deps.Record)) *deps.Resolver {
	return deps.NewResolver(e.fetcher, deps.Options{
		Workers:      e.cfg.Workers,
		MaxAttempts:  e.cfg.Retries,
		MaxRetryWait: e.cfg.MaxRetryWait,
		FetchTimeout: e.cfg.FetchTimeout,
		Logger:       printfAt(e.logger, log.DebugLevel),
		Warnf:        printfAt(e.logger, log.WarnLevel),
		OnRecord:     onRecord,
	})
}

func (e *engine) Close() error {
	return e.cache.Close()
}
