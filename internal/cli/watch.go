package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/chbrown/sql-patch/internal/patch"
)

const defaultDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "watch [flags] <patches-dir>",
	Short: "Apply patches, then again whenever a patch file changes",
	Long: `Apply pending patches once, then watch the directory and apply again
each time a .sql file is created, written or renamed into it. Runs until
interrupted. A failed run is logged and watching continues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	watchCmd.Flags().Duration("debounce", defaultDebounce, "quiet period after the last change before applying")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := patchesDir(cfg, args)
	if err != nil {
		return err
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := newLogger(cmd)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	release, err := lock(ctx, client, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()

	return watchDir(ctx, dir, debounce, logger, func(ctx context.Context) {
		if _, err := applyPatches(ctx, out, logger, client, cfg.Table, dir, false); err != nil {
			logger.Error("apply failed", "error", err)
		}
	})
}

// watchDir calls run once, then again each time changes to patch files in
// dir have been quiet for debounce. Every call happens on the calling
// goroutine, so runs never overlap. Returns nil when ctx is done.
func watchDir(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, run func(context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	run(ctx)

	logger.Info("watching for patches", "dir", dir)

	timer := time.NewTimer(debounce)
	timer.Stop()

	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			name := filepath.Base(event.Name)
			if !patch.IsPatchFile(name) {
				continue
			}

			logger.Debug("patch file changed", "file", name, "op", event.Op.String())

			timer.Reset(debounce)
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			logger.Error("watcher error", "error", err)

		case <-fire:
			fire = nil

			run(ctx)
		}
	}
}
