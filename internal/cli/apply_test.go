package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chbrown/sql-patch/internal/config"
	"github.com/chbrown/sql-patch/internal/database"
	"github.com/chbrown/sql-patch/internal/executor"
	"github.com/chbrown/sql-patch/internal/testutil"
)

// sqliteConfig points AppConfig-style settings at a fresh SQLite file.
func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.New()
	cfg.Driver = database.DriverSQLite
	cfg.Database = filepath.Join(t.TempDir(), "app.db")

	return cfg
}

func writePatches(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestRunApply_noDatabase_returnsMissingDatabase(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = config.New()

	cmd := newTestCmd(t)

	err := runApply(cmd, []string{t.TempDir()})
	require.ErrorIs(t, err, config.ErrDatabaseRequired)
	assert.EqualError(t, err, "missing database argument")
}

func TestRunApply_noPatchesDir_returnsError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = sqliteConfig(t)

	err := runApply(newTestCmd(t), nil)
	require.ErrorIs(t, err, errPatchesDirRequired)
}

func TestRunApply_sqlite_echoesAppliedFilenames(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = sqliteConfig(t)

	dir := t.TempDir()
	writePatches(t, dir, map[string]string{
		"02-posts.sql":               "CREATE TABLE IF NOT EXISTS posts (id INTEGER, user_id INTEGER);",
		"01-users.sql":               "CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, name TEXT);",
		"02-split-name.sql.disabled": "this is not SQL",
		"README.md":                  "# patches",
	})

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd := newTestCmd(t)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	require.NoError(t, runApply(cmd, []string{dir}))
	assert.Equal(t, "01-users.sql\n02-posts.sql\n", stdout.String())
	assert.Contains(t, stderr.String(), "patch applied")
	assert.Contains(t, stderr.String(), "file=01-users.sql")

	stdout.Reset()
	stderr.Reset()

	require.NoError(t, runApply(cmd, []string{dir}))
	assert.Empty(t, stdout.String(), "second run applies nothing")
	assert.Contains(t, stderr.String(), "applied=0")
}

func TestRunApply_failingPatch_returnsExecutionError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = sqliteConfig(t)

	dir := t.TempDir()
	writePatches(t, dir, map[string]string{
		"01-ok.sql":     "CREATE TABLE a (id INTEGER);",
		"02-broken.sql": "CREATE TABLE (;",
		"03-never.sql":  "CREATE TABLE c (id INTEGER);",
	})

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd := newTestCmd(t)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := runApply(cmd, []string{dir})
	require.ErrorIs(t, err, executor.ErrExecution)

	var execErr *executor.Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "02-broken.sql", execErr.Filename)

	assert.Equal(t, "01-ok.sql\n", stdout.String())
	assert.Contains(t, stderr.String(), "patch failed")
}

func TestRunApply_dryRun_executesNothing(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = sqliteConfig(t)

	dir := t.TempDir()
	writePatches(t, dir, map[string]string{
		"01.sql": "CREATE TABLE a (id INTEGER);",
	})

	stdout := new(bytes.Buffer)
	cmd := newTestCmd(t, "--dry-run")
	cmd.SetOut(stdout)
	cmd.SetErr(new(bytes.Buffer))

	require.NoError(t, runApply(cmd, []string{dir}))
	assert.Equal(t, "01.sql\n", stdout.String())

	client, err := database.NewSQLite(context.Background(), AppConfig.Database)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	records, err := client.SelectAll(context.Background(), AppConfig.Table)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunApply_lockOnSQLite_returnsUnsupported(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	AppConfig = sqliteConfig(t)
	AppConfig.Lock = true

	cmd := newTestCmd(t)
	cmd.SetErr(new(bytes.Buffer))

	err := runApply(cmd, []string{t.TempDir()})
	require.ErrorIs(t, err, database.ErrLockUnsupported)
}

func TestApplyPatches_fakeDB_echoesInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePatches(t, dir, map[string]string{
		"b.sql": "SELECT 2;",
		"a.sql": "SELECT 1;",
	})

	db := testutil.NewFakeDB()
	out := new(bytes.Buffer)
	logs := new(bytes.Buffer)
	logger := slog.New(slog.NewTextHandler(logs, nil))

	names, err := applyPatches(context.Background(), out, logger, db, "_schema_patches", dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql", "b.sql"}, names)
	assert.Equal(t, "a.sql\nb.sql\n", out.String())
	assert.Contains(t, logs.String(), "apply complete")
}
