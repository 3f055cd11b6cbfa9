//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chbrown/sql-patch/internal/database"
)

const (
	postgresImage   = "postgres:16-alpine"
	clickhouseImage = "clickhouse/clickhouse-server:24.8-alpine"
	testDB          = "patch_test"
	testUser        = "patch"
	testPassword    = "patch"
)

// SetupPostgres starts a PostgreSQL 16 container and returns its connection
// URL. The container is terminated when the test completes.
func SetupPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + testUser + ":" + testPassword + "@" + host + ":" + port.Port() + "/" + testDB + "?sslmode=disable"
}

// OpenPostgres starts a container and returns a connected client.
func OpenPostgres(t *testing.T) *database.Postgres {
	t.Helper()

	client, err := database.NewPostgres(context.Background(), SetupPostgres(t), database.PoolOptions{})
	require.NoError(t, err)

	t.Cleanup(func() { client.Close() })

	return client
}

// SetupClickHouse starts a ClickHouse container and returns its native
// protocol connection string.
func SetupClickHouse(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := clickhouse.Run(ctx, clickhouseImage,
		clickhouse.WithUsername(testUser),
		clickhouse.WithPassword(testPassword),
		clickhouse.WithDatabase(testDB),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	return dsn
}

// PatchDir writes files into a fresh temporary directory and returns its path.
func PatchDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	AddPatches(t, dir, files)

	return dir
}

// AddPatches writes files into dir.
func AddPatches(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}
