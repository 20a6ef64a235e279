package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-esym/internal/build"
	"github.com/l3aro/go-esym/internal/log"
	"github.com/l3aro/go-esym/internal/watch"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild files as they change",
	Long: `Runs a full build, then watches source_dir and rebuilds every changed
file after a short quiet period. Deleted sources have their output removed.`,
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
		debounce, _ := cmd.Flags().GetDuration("debounce")
		logger := log.Default()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := runBuild(ctx, cmd.OutOrStdout(), wd, cfg, false, true); err != nil {
			logger.Error("initial build failed", "error", err)
		}

		b, err := build.New(build.Options{Root: wd, Config: cfg, Logger: logger})
		if err != nil {
			return err
		}

		ignore := make([]string, 0, 1)
		if rel, err := filepath.Rel(b.SourceDir(), b.OutDir()); err == nil && filepath.IsLocal(rel) {
			ignore = append(ignore, filepath.ToSlash(rel)+"/**")
		}

		w, err := watch.New(watch.Config{
			BaseDir:  b.SourceDir(),
			Patterns: []string{"**/*" + cfg.SourceExtension},
			Ignore:   ignore,
			Debounce: debounce,
			Logger:   logger,
			OnChange: func(ctx context.Context, changed []string) error {
				return rebuild(ctx, b, logger, changed)
			},
		})
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}

		logger.Info("watching for changes", "dir", b.SourceDir())
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before rebuilding")
}

func rebuild(ctx context.Context, b *build.Builder, logger log.Logger, changed []string) error {
	files := make([]string, 0, len(changed))
	for _, rel := range changed {
		if b.Matches(rel) {
			files = append(files, rel)
		}
	}
	if len(files) == 0 {
		return nil
	}

	report, err := b.BuildFiles(ctx, files)
	if err != nil {
		return err
	}
	for _, f := range report.Files {
		switch {
		case f.Err != nil:
			logger.Error("transform failed", "error", f.Err)
		case f.Removed:
			logger.Info("removed", "file", f.Path)
		case f.Changed:
			logger.Info("rebuilt", "file", f.Path, "module", f.Metadata.ModuleName)
		}
	}
	return nil
}
