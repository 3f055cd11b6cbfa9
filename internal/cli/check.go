package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chbrown/sql-patch/internal/parser"
)

// errUnparseablePatches is returned when check finds a patch PostgreSQL cannot parse.
var errUnparseablePatches = errors.New("patches failed to parse")

var checkCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "check [flags] <patches-dir>",
	Short: "Parse every patch with the PostgreSQL parser",
	Long: `Parse each .sql file in the directory with the real PostgreSQL parser
and report its statement count. No database connection is made. Exits
non-zero if any file fails to parse.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	dir, err := patchesDir(AppConfig, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	results, err := parser.CheckDir(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0

	for _, r := range results {
		if r.Err != nil {
			failed++

			fmt.Fprintf(out, "FAIL  %s  %v\n", r.Filename, r.Err)

			continue
		}

		fmt.Fprintf(out, "ok    %s  %d statement(s)\n", r.Filename, len(r.Kinds))
		logger.Debug("parsed patch", "file", r.Filename, "statements", strings.Join(r.Kinds, ","))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errUnparseablePatches, failed, len(results))
	}

	return nil
}
