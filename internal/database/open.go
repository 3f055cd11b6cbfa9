package database

import (
	"context"
	"fmt"
	"strings"
)

// Supported driver names.
const (
	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DriverClickHouse = "clickhouse"
)

// Options selects and configures a Client.
type Options struct {
	Driver string
	URL    string
	Pool   PoolOptions // PostgreSQL only
}

// NormalizeDriver maps a driver name or alias to one of the Driver constants.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "clickhouse", "ch":
		return DriverClickHouse, nil
	default:
		return "", fmt.Errorf("%w: %q (must be one of: postgres, sqlite, clickhouse)", ErrUnsupportedDriver, name)
	}
}

// Open connects to the database described by opts.
func Open(ctx context.Context, opts Options) (Client, error) {
	driver, err := NormalizeDriver(opts.Driver)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverSQLite:
		return NewSQLite(ctx, opts.URL)
	case DriverClickHouse:
		return NewClickHouse(ctx, opts.URL)
	default:
		return NewPostgres(ctx, opts.URL, opts.Pool)
	}
}

// CreateDatabase connects through opts, which should point at a maintenance
// database such as "postgres", and creates name unless it already exists.
// SQLite databases need no bootstrapping and are left untouched.
func CreateDatabase(ctx context.Context, opts Options, name string) error {
	driver, err := NormalizeDriver(opts.Driver)
	if err != nil {
		return err
	}

	if driver == DriverSQLite || name == "" {
		return nil
	}

	client, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.CreateDatabaseIfNotExists(ctx, name)
}
