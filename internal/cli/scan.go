package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	"github.com/matzehuels/licensecrawl/pkg/deps/license"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	"github.com/matzehuels/licensecrawl/pkg/lockfile"
	"github.com/matzehuels/licensecrawl/pkg/observability"
	"github.com/matzehuels/licensecrawl/pkg/report"
)

// maxParallelProjects bounds how many lockfiles resolve at the same time.
const maxParallelProjects = 4

// storeTimeout bounds saving a report once resolution has finished.
const storeTimeout = 30 * time.Second

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	workers      int
	retries      int
	timeout      time.Duration
	fetchTimeout time.Duration
	allowed      string
	cache        string
	mongoURI     string
	unknownOnly  bool
	refresh      bool
	recursive    bool
	csv          bool
	tree         bool
	info         bool
	output       string // output file path (stdout if empty)
	graph        string // .dot, .gv or .svg path
}

// apply overrides cfg with the flags that were set on cmd.
func (o *scanOpts) apply(cmd *cobra.Command, cfg Config) Config {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("retries") {
		cfg.Retries = o.retries
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("fetch-timeout") {
		cfg.FetchTimeout = o.fetchTimeout
	}
	if flags.Changed("allowed") {
		cfg.Allowed = license.ParsePolicy(o.allowed).Patterns()
	}
	if flags.Changed("cache") {
		cfg.Cache = o.cache
	}
	if flags.Changed("mongo-uri") {
		cfg.Mongo.URI = o.mongoURI
	}
	return cfg
}

func (c *CLI) scanCommand() *cobra.Command {
	var opts scanOpts

	cmd := &cobra.Command{
		Use:   "scan [path...]",
		Short: "Resolve the licenses of every dependency in a project",
		Long: `Scan reads the lockfiles of each project path, resolves every locked package
and its transitive dependencies through the npm registry and GitHub, and prints
one line per package:

  <registry>:<name>@<version>,<license>[,<expiration>]

Packages whose license could not be determined are reported as UNKNOWN.

Examples:
  licensecrawl scan                          # Lockfiles in the current directory
  licensecrawl scan -r ~/src/monorepo        # Every lockfile below a directory
  licensecrawl scan --allowed 'MIT,BSD-*'    # Fail on other licenses
  licensecrawl scan --csv -o licenses.csv    # CSV report
  licensecrawl scan --graph deps.svg         # Render the dependency graph`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			cfg := opts.apply(cmd, c.cfg)
			if err := cfg.validate(); err != nil {
				return err
			}
			return c.runScan(cmd.Context(), cmd, cfg, &opts, args)
		},
	}

	cfg := c.cfg
	cmd.Flags().IntVar(&opts.workers, "workers", cfg.Workers, "concurrent fetch workers")
	cmd.Flags().IntVar(&opts.retries, "retries", cfg.Retries, "fetch attempts per package")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall deadline (0 for none)")
	cmd.Flags().DurationVar(&opts.fetchTimeout, "fetch-timeout", cfg.FetchTimeout, "timeout of a single fetch")
	cmd.Flags().StringVar(&opts.allowed, "allowed", "", "comma-separated allowed licenses, * wildcards")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "metadata cache: directory, redis:// URL, \"memory\" or \"none\"")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "store the report in MongoDB")
	cmd.Flags().BoolVar(&opts.unknownOnly, "unknown", false, "only print packages with an unknown license")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cache")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "find lockfiles in subdirectories")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "write CSV")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "print the dependency tree")
	cmd.Flags().BoolVar(&opts.info, "info", false, "print lockfile contents without resolving")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "write the dependency graph (.dot or .svg)")
	cmd.MarkFlagsMutuallyExclusive("csv", "tree")

	return cmd
}

func (c *CLI) runScan(ctx context.Context, cmd *cobra.Command, cfg Config, opts *scanOpts, paths []string) error {
	logger := loggerFromContext(ctx)
	stderr := cmd.ErrOrStderr()

	lockfiles, err := loadLockfiles(paths, opts.recursive)
	if err != nil {
		return err
	}
	if opts.info {
		for _, lf := range lockfiles {
			printLockfileInfo(cmd.OutOrStdout(), lf)
		}
		return nil
	}

	var seedSets [][]deps.Identity
	for _, lf := range lockfiles {
		if len(lf.Seeds) == 0 {
			logger.Warnf("%s lists no packages", lf.Path)
			continue
		}
		logger.Debugf("%s: %d packages", lf.Path, len(lf.Seeds))
		seedSets = append(seedSets, lf.Seeds)
	}
	if len(seedSets) == 0 {
		return deps.ErrNoSeeds
	}

	eng, err := newEngine(ctx, cfg, logger, opts.refresh)
	if err != nil {
		return err
	}
	defer eng.Close()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	stats := observability.NewStats()
	restore := observability.Install(observability.Hooks{
		Resolve: stats,
		Cache:   stats,
		HTTP:    httpLog{next: stats, logger: logger},
	})
	defer restore()

	prog := newScanProgress(stderr, fmt.Sprintf("Resolving %d lockfiles", len(seedSets)))
	sw := startStopwatch(logger)
	results, errs := eng.resolver(prog.record).ResolveAll(ctx, seedSets, maxParallelProjects)
	prog.stop()

	runErr := errors.Join(errs...)
	if runErr != nil && !isRunInterrupted(runErr) {
		return runErr
	}

	res := report.Merge(results...)
	sw.done(fmt.Sprintf("Resolved %d packages", len(res.Records)))
	if runErr != nil {
		printWarning(stderr, "Run interrupted, %d packages reported as cancelled", res.Count(deps.StatusCancelled))
	}

	if err := writeRecords(opts, res, eng.policy, cmd.OutOrStdout()); err != nil {
		return err
	}
	if opts.graph != "" {
		if err := withSpinner(stderr, "Rendering graph", func() error {
			return report.WriteGraph(ctx, opts.graph, res, report.GraphOptions{Policy: eng.policy})
		}); err != nil {
			return err
		}
		printFile(stderr, opts.graph)
	}

	sum := report.Summarize(res.Records, eng.policy)
	if cfg.Mongo.URI != "" {
		if err := storeReports(ctx, stderr, cfg.Mongo, lockfiles, results, eng.policy); err != nil {
			logger.Warnf("Report not stored: %v", err)
		}
	}

	printLicenseTable(stderr, sum)
	printSummary(stderr, sum, eng.policy.Patterns())
	printFetchStats(stderr, stats.Snapshot())

	if runErr != nil {
		return runErr
	}
	if n := len(sum.Violations); n > 0 {
		return apperr.New(apperr.ErrCodePolicyViolation, "%d packages use licenses outside the allowed list", n)
	}
	return nil
}

// loadLockfiles discovers and parses the lockfiles under paths.
func loadLockfiles(paths []string, recursive bool) ([]*lockfile.Lockfile, error) {
	var out []*lockfile.Lockfile
	for _, root := range paths {
		found, err := lockfile.Find(root, recursive)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, apperr.New(apperr.ErrCodeFileNotFound, "no lockfile found in %s (supported: %s)", root, supportedLockfiles())
		}
		for _, path := range found {
			lf, err := lockfile.Load(path)
			if err != nil {
				return nil, err
			}
			out = append(out, lf)
		}
	}
	return out, nil
}

func supportedLockfiles() string {
	var names []string
	for _, p := range lockfile.Parsers() {
		names = append(names, p.Type())
	}
	return strings.Join(names, ", ")
}

func isRunInterrupted(err error) bool {
	return apperr.Is(err, apperr.ErrCodeRunCancelled) || apperr.Is(err, apperr.ErrCodeTimeout)
}

// writeRecords renders res as text, CSV or tree to the -o file or w.
func writeRecords(opts *scanOpts, res *deps.Result, policy *license.Policy, w io.Writer) (err error) {
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create %s", opts.output)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	ropts := report.Options{UnknownOnly: opts.unknownOnly, Policy: policy}
	switch {
	case opts.tree:
		return report.WriteTree(w, res)
	case opts.csv:
		return report.WriteCSV(w, res.Records, ropts)
	default:
		return report.WriteText(w, res.Records, ropts)
	}
}

// storeContext detaches ctx from the run's deadline and cancellation, so
// partial results of an interrupted run are still stored, and gives the
// store its own timeout.
func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
}

// storeReports saves one report per resolved lockfile.
func storeReports(ctx context.Context, w io.Writer, cfg MongoConfig, lockfiles []*lockfile.Lockfile, results []*deps.Result, policy *license.Policy) error {
	ctx, cancel := storeContext(ctx)
	defer cancel()
	return withSpinner(w, "Storing report", func() error {
		sink, err := report.NewMongoSink(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return err
		}
		defer sink.Close(ctx)

		projects := projectNames(lockfiles)
		for i, res := range results {
			if res == nil {
				continue
			}
			if err := sink.Store(ctx, projects[i], res, report.Summarize(res.Records, policy)); err != nil {
				return err
			}
		}
		return nil
	})
}

// projectNames maps each lockfile with seeds to its project directory,
// aligned with the seed sets passed to the resolver.
func projectNames(lockfiles []*lockfile.Lockfile) []string {
	var out []string
	for _, lf := range lockfiles {
		if len(lf.Seeds) == 0 {
			continue
		}
		dir, err := filepath.Abs(filepath.Dir(lf.Path))
		if err != nil {
			dir = filepath.Dir(lf.Path)
		}
		out = append(out, strings.TrimSuffix(dir, string(filepath.Separator)))
	}
	return out
}
