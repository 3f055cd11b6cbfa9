package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ColumnType is a dialect-neutral column type.
type ColumnType int

const (
	// TypeText is an unbounded string column.
	TypeText ColumnType = iota
	// TypeTimestamp is a date-time column.
	TypeTimestamp
)

// Column describes one column of a table created through CreateTableIfNotExists.
type Column struct {
	Name       string
	Type       ColumnType
	NotNull    bool
	DefaultNow bool // default to the time of insertion
}

// Record is one row of the bookkeeping table.
type Record struct {
	Filename string
	Applied  time.Time
}

// Client is the database capability the patch applicator consumes.
// Table names are passed through as given and must be trusted by the caller.
type Client interface {
	// Exec runs sql as-is: no statement splitting, no implicit transaction.
	Exec(ctx context.Context, sql string) error
	CreateTableIfNotExists(ctx context.Context, table string, columns []Column) error
	// SelectAll returns every row of the bookkeeping table.
	SelectAll(ctx context.Context, table string) ([]Record, error)
	InsertRow(ctx context.Context, table string, fields map[string]any) error
	CreateDatabaseIfNotExists(ctx context.Context, name string) error
	Close() error
}

// dialect renders the statements that differ between databases.
type dialect struct {
	quote       func(name string) string
	typeName    func(t ColumnType) string
	now         string
	placeholder func(i int) string
	tableSuffix string
}

func (d dialect) createTableSQL(table string, columns []Column) string {
	defs := make([]string, 0, len(columns))

	for _, c := range columns {
		def := d.quote(c.Name) + " " + d.typeName(c.Type)
		if c.NotNull {
			def += " NOT NULL"
		}

		if c.DefaultNow {
			def += " DEFAULT " + d.now
		}

		defs = append(defs, def)
	}

	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quote(table), strings.Join(defs, ", "))
	if d.tableSuffix != "" {
		sql += " " + d.tableSuffix
	}

	return sql
}

func (d dialect) selectAllSQL(table string) string {
	return fmt.Sprintf("SELECT %s, %s FROM %s", d.quote("filename"), d.quote("applied"), d.quote(table))
}

// insertSQL builds a parameterized INSERT with columns in sorted order and
// returns the matching argument list.
func (d dialect) insertSQL(table string, fields map[string]any) (string, []any) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	sort.Strings(names)

	cols := make([]string, len(names))
	params := make([]string, len(names))
	args := make([]any, len(names))

	for i, name := range names {
		cols[i] = d.quote(name)
		params[i] = d.placeholder(i + 1)
		args[i] = fields[name]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(table), strings.Join(cols, ", "), strings.Join(params, ", "))

	return sql, args
}

func questionMark(int) string { return "?" }

func verbatim(name string) string { return name }
