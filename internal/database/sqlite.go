package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

var sqliteDialect = dialect{ //nolint:gochecknoglobals // immutable dialect table
	quote: verbatim,
	typeName: func(t ColumnType) string {
		if t == TypeTimestamp {
			return "TIMESTAMP"
		}

		return "TEXT"
	},
	now:         "CURRENT_TIMESTAMP",
	placeholder: questionMark,
}

// SQLite is a Client backed by a database/sql handle on a SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the SQLite database at dsn (a file path or file: URI)
// and verifies it can be reached.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &SQLite{db: db}, nil
}

// DB exposes the underlying handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Exec runs query as-is; the driver executes every statement in the text.
func (s *SQLite) Exec(ctx context.Context, query string) error {
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	return nil
}

// CreateTableIfNotExists creates table with the given columns unless it exists.
func (s *SQLite) CreateTableIfNotExists(ctx context.Context, table string, columns []Column) error {
	if _, err := s.db.ExecContext(ctx, sqliteDialect.createTableSQL(table, columns)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	return nil
}

// SelectAll returns every row of table.
func (s *SQLite) SelectAll(ctx context.Context, table string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, sqliteDialect.selectAllSQL(table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Filename, &r.Applied); err != nil {
			return nil, fmt.Errorf("scanning patch row: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", table, err)
	}

	return records, nil
}

// InsertRow inserts one row into table.
func (s *SQLite) InsertRow(ctx context.Context, table string, fields map[string]any) error {
	query, args := sqliteDialect.insertSQL(table, fields)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}

	return nil
}

// CreateDatabaseIfNotExists is a no-op: opening a SQLite file creates it.
func (s *SQLite) CreateDatabaseIfNotExists(context.Context, string) error {
	return nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
