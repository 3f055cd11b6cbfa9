package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxConns = 5

// PoolOptions tunes the session every pooled PostgreSQL connection starts with.
type PoolOptions struct {
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// NewPool creates a pgx connection pool for the given database URL.
// It parses the connection string, sets a conservative max connection limit,
// applies the session timeouts, and pings the database to verify connectivity.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	poolCfg.MaxConns = defaultMaxConns

	params := poolCfg.ConnConfig.RuntimeParams
	if opts.StatementTimeout > 0 {
		params["statement_timeout"] = millis(opts.StatementTimeout)
	}

	if opts.LockTimeout > 0 {
		params["lock_timeout"] = millis(opts.LockTimeout)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return pool, nil
}

func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
