package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-esym/internal/build"
	"github.com/l3aro/go-esym/internal/config"
	"github.com/l3aro/go-esym/internal/log"
	"github.com/l3aro/go-esym/pkg/cache"
)

// errStale is returned by build --check when outputs are out of date.
var errStale = errors.New("outputs are out of date")

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Transform every source file into the output directory",
	Long: `Scans source_dir for files ending in source_extension, transforms them
and writes the results under out_dir, mirroring the source layout.

Unchanged files are served from the build cache. With --check nothing is
written; stale outputs are printed as unified diffs and the command fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		wd, err := workingDir()
		if err != nil {
			return err
		}
		check, _ := cmd.Flags().GetBool("check")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runBuild(ctx, cmd.OutOrStdout(), wd, cfg, check, !noCache)
	},
}

func init() {
	buildCmd.Flags().Bool("check", false, "Report stale outputs as diffs without writing")
	buildCmd.Flags().Bool("no-cache", false, "Ignore and do not update the build cache")
}

func runBuild(ctx context.Context, out io.Writer, root string, cfg *config.Config, check, useCache bool) error {
	logger := log.Default()
	start := time.Now()

	var c *cache.Cache
	cachePath := filepath.Join(root, cfg.CachePath)
	if useCache {
		var err error
		c, err = cache.New(cache.Options{MaxEntries: cfg.CacheSize})
		if err != nil {
			return err
		}
		if err := cache.LoadFromFile(c, cachePath); err != nil {
			logger.Warn("discarding build cache", "path", cachePath, "error", err)
			c.Clear()
		}
	}

	b, err := build.New(build.Options{Root: root, Config: cfg, Logger: logger, Cache: c, Check: check})
	if err != nil {
		return err
	}

	report, err := b.Build(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Failed() {
		logger.Error("transform failed", "error", f.Err)
	}
	if check {
		for _, f := range report.Files {
			switch {
			case f.Err != nil || !f.Changed:
			case f.Removed:
				fmt.Fprintf(out, "stale output %s\n", f.OutPath)
			default:
				fmt.Fprint(out, f.Diff)
			}
		}
	}

	if c != nil && !check {
		if err := cache.PersistToFile(c, cachePath); err != nil {
			logger.Warn("cannot save build cache", "path", cachePath, "error", err)
		}
	}

	logger.Info("build finished",
		"files", len(report.Files),
		"changed", report.Changed(),
		"cached", report.Cached(),
		"failed", len(report.Failed()),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if err := report.Err(); err != nil {
		return fmt.Errorf("%d file(s) failed", len(report.Failed()))
	}
	if check && report.Changed() > 0 {
		return errStale
	}
	return nil
}
