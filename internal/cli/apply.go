package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/chbrown/sql-patch/internal/database"
	"github.com/chbrown/sql-patch/internal/executor"
)

func runApply(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := patchesDir(cfg, args)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	logger := newLogger(cmd)
	ctx := commandContext(cmd)

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

	_, err = applyPatches(ctx, cmd.OutOrStdout(), logger, client, cfg.Table, dir, dryRun)

	return err
}

// applyPatches runs one pass and echoes each applied (or, in a dry run,
// pending) filename to out, one per line. Names applied before a failure
// are echoed too.
func applyPatches(
	ctx context.Context,
	out io.Writer,
	logger *slog.Logger,
	client database.Client,
	table, dir string,
	dryRun bool,
) ([]string, error) {
	logger.Debug("scanning patches", "dir", dir, "table", table, "dry_run", dryRun)

	names, err := executor.ApplyPatches(ctx, client, table, dir,
		executor.WithDryRun(dryRun),
		executor.WithProgressCallback(logProgress(logger)),
	)

	for _, name := range names {
		fmt.Fprintln(out, name)
	}

	if err != nil {
		return names, err
	}

	if dryRun {
		logger.Info("dry run complete", "pending", len(names))
	} else {
		logger.Info("apply complete", "applied", len(names))
	}

	return names, nil
}

func logProgress(logger *slog.Logger) func(executor.ProgressEvent) {
	return func(event executor.ProgressEvent) {
		switch event.Status {
		case executor.StatusStarting:
			logger.Info("applying patch", "file", event.Filename)
		case executor.StatusCompleted:
			logger.Info("patch applied", "file", event.Filename, "duration", event.Duration.Truncate(time.Millisecond))
		case executor.StatusFailed:
			logger.Error("patch failed", "file", event.Filename, "error", event.Error)
		case executor.StatusPending:
			logger.Info("patch pending", "file", event.Filename)
		}
	}
}
