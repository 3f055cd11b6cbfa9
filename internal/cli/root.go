package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chbrown/sql-patch/internal/config"
	"github.com/chbrown/sql-patch/internal/database"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// errPatchesDirRequired is returned when neither an argument nor the config names a directory.
var errPatchesDirRequired = errors.New("missing patches directory argument")

// rootCmd is the base command; on its own it applies patches.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "sql-patch [flags] <patches-dir>",
	Version: version,
	Short:   "Apply SQL patch files to a database exactly once each",
	Long: `sql-patch applies every .sql file in a directory that is not yet recorded
in the bookkeeping table, in filename order, and records each one after it
runs. Patches are one-way and must be safe to re-run: a patch whose record
fails to insert is applied again on the next run.

A patches directory named like a subcommand (status, check, watch) runs that
subcommand instead; pass it as ./status.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerFlags(rootCmd)
}

// registerFlags adds the connection and behaviour flags to cmd.
func registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", config.DefaultConfigFile, "path to configuration file")
	flags.String("driver", config.DefaultDriver, "database driver (postgres, sqlite, clickhouse)")
	flags.String("host", config.DefaultHost, "database host")
	flags.Int("port", 0, "database port (default 5432 for postgres, 9000 for clickhouse)")
	flags.String("user", "", "database user")
	flags.String("password", "", "database password")
	flags.String("database", "", "database name (file path for sqlite)")
	flags.Bool("ssl", false, "connect over TLS")
	flags.String("table", config.DefaultTable, "bookkeeping table name")
	flags.String("database-url", "", "connection URL; overrides host, port, user, password and database")
	flags.Bool("create-database", true, "create the database if it does not exist")
	flags.Bool("lock", false, "hold a PostgreSQL advisory lock while applying")
	flags.Duration("statement-timeout", 0, "PostgreSQL statement_timeout (e.g., 30s, 5m)")
	flags.Duration("lock-timeout", 0, "PostgreSQL lock_timeout (e.g., 10s, 1m)")
	flags.Bool("verbose", false, "enable debug logging")

	cmd.Flags().Bool("dry-run", false, "list the patches that would be applied without executing them")
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}

	str("driver", &cfg.Driver)
	str("host", &cfg.Host)
	str("user", &cfg.User)
	str("password", &cfg.Password)
	str("database", &cfg.Database)
	str("table", &cfg.Table)
	str("database-url", &cfg.DatabaseURL)

	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}

	boolean("ssl", &cfg.SSL)
	boolean("create-database", &cfg.CreateDatabase)
	boolean("lock", &cfg.Lock)

	if flags.Changed("statement-timeout") {
		cfg.StatementTimeout, _ = flags.GetDuration("statement-timeout")
	}

	if flags.Changed("lock-timeout") {
		cfg.LockTimeout, _ = flags.GetDuration("lock-timeout")
	}
}

// patchesDir returns the positional directory argument, falling back to the
// configured one.
func patchesDir(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	if cfg.PatchesDir != "" {
		return cfg.PatchesDir, nil
	}

	return "", errPatchesDirRequired
}

// newLogger returns a text logger on the command's error stream.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// connect creates the target database when configured to, then opens a client on it.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Client, error) {
	pool := database.PoolOptions{
		StatementTimeout: cfg.StatementTimeout,
		LockTimeout:      cfg.LockTimeout,
	}

	if cfg.CreateDatabase {
		name := cfg.DatabaseName()
		maintenance := cfg.MaintenanceURL()

		logger.Debug("ensuring database exists", "database", name, "url", config.RedactURL(maintenance))

		opts := database.Options{Driver: cfg.Driver, URL: maintenance, Pool: pool}
		if err := database.CreateDatabase(ctx, opts, name); err != nil {
			return nil, fmt.Errorf("creating database %s: %w", name, err)
		}
	}

	url := cfg.ConnURL("")
	logger.Info("connecting", "driver", cfg.Driver, "url", config.RedactURL(url))

	client, err := database.Open(ctx, database.Options{Driver: cfg.Driver, URL: url, Pool: pool})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return client, nil
}

// lock takes the advisory lock when cfg asks for one. The returned release
// func is never nil.
func lock(ctx context.Context, client database.Client, cfg *config.Config, logger *slog.Logger) (func(), error) {
	if !cfg.Lock {
		return func() {}, nil
	}

	key := "sql-patch:" + cfg.Table

	handle, err := database.TryLock(ctx, client, key)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", cfg.Table, err)
	}

	logger.Debug("advisory lock acquired", "key", key)

	return func() {
		if err := handle.Release(context.Background()); err != nil {
			logger.Error("releasing advisory lock", "error", err)
		}
	}, nil
}
