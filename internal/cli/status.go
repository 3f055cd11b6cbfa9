package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/chbrown/sql-patch/internal/executor"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status [flags] <patches-dir>",
	Short: "Show applied and pending patches",
	Long: `Display the patches recorded in the bookkeeping table, oldest first,
followed by the patches in the directory that would be applied next.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := patchesDir(cfg, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	ctx := commandContext(cmd)

	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := executor.New(client, cfg.Table, dir).Status(ctx)
	if err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), report)

	return nil
}

func printStatus(out io.Writer, report *executor.Report) {
	for _, r := range report.Applied {
		fmt.Fprintf(out, "applied  %s  %s\n", r.Applied.UTC().Format(time.RFC3339), r.Filename)
	}

	for _, name := range report.Pending {
		fmt.Fprintf(out, "pending  %s\n", name)
	}
}
