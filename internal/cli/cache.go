package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/licensecrawl/pkg/cache"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the registry metadata cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// fileCache opens the configured on-disk cache. Other backends are
// managed with their own tools.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	loc := c.cfg.Cache
	switch {
	case loc == "off" || loc == "none":
		return nil, apperr.New(apperr.ErrCodeUnsupported, "cache is disabled")
	case loc == "memory" || strings.Contains(loc, "://"):
		return nil, apperr.New(apperr.ErrCodeUnsupported, "cache %s is not a directory", loc)
	}
	if loc == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		loc = dir
	}
	return cache.NewFileCache(loc)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached registry responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			stats, err := fc.Stats()
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			if stats.Entries == 0 {
				printInfo(out, "Cache is empty")
				return nil
			}
			if err := fc.Clear(); err != nil {
				return err
			}
			printSuccess(out, "Cleared %d cached entries", stats.Entries)
			printDetail(out, "Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fc.Dir())
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			stats, err := fc.Stats()
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			out := cmd.OutOrStdout()
			printKeyValue(out, "Directory", fc.Dir())
			printKeyValue(out, "Entries", fmt.Sprint(stats.Entries))
			printKeyValue(out, "Size", formatBytes(stats.Bytes))
			return nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
