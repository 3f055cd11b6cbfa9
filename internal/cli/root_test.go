package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chbrown/sql-patch/internal/config"
)

// newTestCmd returns a fresh command carrying rootCmd's flags, parsed from args.
func newTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{}
	registerFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))

	return cmd
}

func TestMergeFlags_connectionFlags_overrideConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := &cobra.Command{}
	cmd.Flags().String("driver", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().Int("port", 0, "")
	cmd.Flags().String("user", "", "")
	cmd.Flags().String("password", "", "")
	cmd.Flags().String("database", "", "")
	cmd.Flags().Bool("ssl", false, "")

	require.NoError(t, cmd.Flags().Set("driver", "clickhouse"))
	require.NoError(t, cmd.Flags().Set("host", "ch.internal"))
	require.NoError(t, cmd.Flags().Set("port", "9440"))
	require.NoError(t, cmd.Flags().Set("user", "deploy"))
	require.NoError(t, cmd.Flags().Set("password", "pw"))
	require.NoError(t, cmd.Flags().Set("database", "analytics"))
	require.NoError(t, cmd.Flags().Set("ssl", "true"))

	mergeFlags(cmd, cfg)

	assert.Equal(t, "clickhouse", cfg.Driver)
	assert.Equal(t, "ch.internal", cfg.Host)
	assert.Equal(t, 9440, cfg.Port)
	assert.Equal(t, "deploy", cfg.User)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, "analytics", cfg.Database)
	assert.True(t, cfg.SSL)
}

func TestMergeFlags_behaviourFlags_overrideConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := &cobra.Command{}
	cmd.Flags().String("table", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().Bool("create-database", true, "")
	cmd.Flags().Bool("lock", false, "")
	cmd.Flags().Duration("statement-timeout", 0, "")
	cmd.Flags().Duration("lock-timeout", 0, "")

	require.NoError(t, cmd.Flags().Set("table", "_applied"))
	require.NoError(t, cmd.Flags().Set("database-url", "postgres://test:5432/db"))
	require.NoError(t, cmd.Flags().Set("create-database", "false"))
	require.NoError(t, cmd.Flags().Set("lock", "true"))
	require.NoError(t, cmd.Flags().Set("statement-timeout", "30s"))
	require.NoError(t, cmd.Flags().Set("lock-timeout", "5s"))

	mergeFlags(cmd, cfg)

	assert.Equal(t, "_applied", cfg.Table)
	assert.Equal(t, "postgres://test:5432/db", cfg.DatabaseURL)
	assert.False(t, cfg.CreateDatabase)
	assert.True(t, cfg.Lock)
	assert.Equal(t, 30*time.Second, cfg.StatementTimeout)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
}

func TestMergeFlags_unchangedFlags_preserveConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DatabaseURL = "postgres://original:5432/db"
	cfg.Table = "_from_file"

	mergeFlags(newTestCmd(t), cfg)

	assert.Equal(t, "postgres://original:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "_from_file", cfg.Table)
	assert.True(t, cfg.CreateDatabase)
}

func TestPatchesDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.Config
		args    []string
		want    string
		wantErr error
	}{
		{name: "argument wins", cfg: &config.Config{PatchesDir: "/from/config"}, args: []string{"./patches"}, want: "./patches"},
		{name: "falls back to config", cfg: &config.Config{PatchesDir: "/from/config"}, want: "/from/config"},
		{name: "neither set", cfg: config.New(), wantErr: errPatchesDirRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := patchesDir(tt.cfg, tt.args)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cmd := newTestCmd(t, "--database", "app")

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, config.DefaultTable, AppConfig.Table)
	assert.Equal(t, config.DefaultDriver, AppConfig.Driver)
	assert.Equal(t, "app", AppConfig.Database)
}

func TestLoadConfig_precedence_flagOverEnvOverFile(t *testing.T) { // not parallel: sets env, mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cfgPath := filepath.Join(t.TempDir(), "sql-patch.yml")
	yamlContent := "database: from_file\ntable: _file_table\nhost: file-host\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	t.Setenv("SQL_PATCH_TABLE", "_env_table")
	t.Setenv("SQL_PATCH_HOST", "env-host")

	cmd := newTestCmd(t, "--config", cfgPath, "--host", "flag-host")

	err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from_file", AppConfig.Database)
	assert.Equal(t, "_env_table", AppConfig.Table)
	assert.Equal(t, "flag-host", AppConfig.Host)
}

func TestLoadConfig_explicitMissingFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cmd := newTestCmd(t, "--config", filepath.Join(t.TempDir(), "absent.yml"))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestRootCmd_find_dotSlashDirectoryIsNotASubcommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want *cobra.Command
	}{
		{name: "bare subcommand name", args: []string{"status"}, want: statusCmd},
		{name: "dot-slash directory", args: []string{"./status"}, want: rootCmd},
		{name: "plain directory", args: []string{"patches"}, want: rootCmd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd, _, err := rootCmd.Find(tt.args)
			require.NoError(t, err)
			assert.Same(t, tt.want, cmd)
		})
	}
}
