package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresDialect = dialect{ //nolint:gochecknoglobals // immutable dialect table
	quote: quoteIdent,
	typeName: func(t ColumnType) string {
		if t == TypeTimestamp {
			return "TIMESTAMP"
		}

		return "TEXT"
	},
	now:         "now()",
	placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
}

// quoteIdent quotes a possibly schema-qualified name, e.g. admin.patches
// becomes "admin"."patches".
func quoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// Postgres is a Client backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and returns a Client.
func NewPostgres(ctx context.Context, databaseURL string, opts PoolOptions) (*Postgres, error) {
	pool, err := NewPool(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

// Pool exposes the underlying pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Exec runs sql with no arguments, which pgx sends over the simple query
// protocol so a patch may hold several statements.
func (p *Postgres) Exec(ctx context.Context, sql string) error {
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	return nil
}

// CreateTableIfNotExists creates table with the given columns unless it exists.
func (p *Postgres) CreateTableIfNotExists(ctx context.Context, table string, columns []Column) error {
	if _, err := p.pool.Exec(ctx, postgresDialect.createTableSQL(table, columns)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	return nil
}

// SelectAll returns every row of table.
func (p *Postgres) SelectAll(ctx context.Context, table string) ([]Record, error) {
	rows, err := p.pool.Query(ctx, postgresDialect.selectAllSQL(table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		if scanErr := row.Scan(&r.Filename, &r.Applied); scanErr != nil {
			return Record{}, fmt.Errorf("scanning patch row: %w", scanErr)
		}

		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", table, err)
	}

	return records, nil
}

// InsertRow inserts one row into table.
func (p *Postgres) InsertRow(ctx context.Context, table string, fields map[string]any) error {
	sql, args := postgresDialect.insertSQL(table, fields)

	if _, err := p.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}

	return nil
}

// CreateDatabaseIfNotExists creates the named database. PostgreSQL has no
// IF NOT EXISTS form for databases, so pg_database is consulted first.
func (p *Postgres) CreateDatabaseIfNotExists(ctx context.Context, name string) error {
	var exists bool

	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking database %s: %w", name, err)
	}

	if exists {
		return nil
	}

	if _, err := p.pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("creating database %s: %w", name, err)
	}

	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()

	return nil
}

// LockHandle wraps a dedicated pooled connection that holds a
// session-level advisory lock. Call Release to unlock and return
// the connection to the pool.
type LockHandle struct {
	conn *pgxpool.Conn
	key  string
}

// TryLock attempts to acquire a session-level advisory lock identified by
// hashtext(key). Returns ErrLockNotAcquired if another session holds it.
// The caller must call handle.Release() when done.
func (p *Postgres) TryLock(ctx context.Context, key string) (*LockHandle, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", key).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{conn: conn, key: key}, nil
}

// Release unlocks the advisory lock and returns the connection to the pool.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock(hashtext($1))", h.key)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}

// TryLock takes the advisory lock when client supports one.
func TryLock(ctx context.Context, client Client, key string) (*LockHandle, error) {
	pg, ok := client.(*Postgres)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrLockUnsupported, client)
	}

	return pg.TryLock(ctx, key)
}
