// Package testutil provides an in-memory database.Client for unit tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chbrown/sql-patch/internal/database"
)

// ErrNoSuchTable is returned by FakeDB.SelectAll and InsertRow for tables
// that were never created.
var ErrNoSuchTable = errors.New("no such table")

var _ database.Client = (*FakeDB)(nil)

// FakeDB is an in-memory database.Client. It records every call so tests can
// assert on the exact sequence of operations.
type FakeDB struct {
	Tables    map[string][]database.Record
	Columns   map[string][]database.Column
	Databases map[string]bool
	Execs     []string // SQL passed to Exec, in order
	Calls     []string // "create <t>", "select <t>", "exec", "insert <t> <file>"
	Closed    bool

	CreateErr error
	SelectErr error
	// ExecErr, when set, decides per statement whether Exec fails.
	ExecErr func(sql string) error
	// InsertErr, when set, decides per filename whether InsertRow fails.
	InsertErr func(filename string) error

	Now func() time.Time
}

// NewFakeDB returns an empty FakeDB.
func NewFakeDB() *FakeDB {
	return &FakeDB{
		Tables:    make(map[string][]database.Record),
		Columns:   make(map[string][]database.Column),
		Databases: make(map[string]bool),
		Now:       time.Now,
	}
}

// Seed creates table with the given filenames already recorded.
func (f *FakeDB) Seed(table string, filenames ...string) {
	for _, name := range filenames {
		f.Tables[table] = append(f.Tables[table], database.Record{Filename: name, Applied: f.Now()})
	}

	if f.Tables[table] == nil {
		f.Tables[table] = []database.Record{}
	}
}

// Filenames returns the filenames recorded in table, in insertion order.
func (f *FakeDB) Filenames(table string) []string {
	names := make([]string, 0, len(f.Tables[table]))
	for _, r := range f.Tables[table] {
		names = append(names, r.Filename)
	}

	return names
}

// Exec records sql and fails if ExecErr says so.
func (f *FakeDB) Exec(_ context.Context, sql string) error {
	f.Calls = append(f.Calls, "exec")

	if f.ExecErr != nil {
		if err := f.ExecErr(sql); err != nil {
			return err
		}
	}

	f.Execs = append(f.Execs, sql)

	return nil
}

// CreateTableIfNotExists creates table unless it exists.
func (f *FakeDB) CreateTableIfNotExists(_ context.Context, table string, columns []database.Column) error {
	f.Calls = append(f.Calls, "create "+table)

	if f.CreateErr != nil {
		return f.CreateErr
	}

	if _, ok := f.Tables[table]; !ok {
		f.Tables[table] = []database.Record{}
		f.Columns[table] = columns
	}

	return nil
}

// SelectAll returns a copy of the rows in table.
func (f *FakeDB) SelectAll(_ context.Context, table string) ([]database.Record, error) {
	f.Calls = append(f.Calls, "select "+table)

	if f.SelectErr != nil {
		return nil, f.SelectErr
	}

	rows, ok := f.Tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}

	return append([]database.Record(nil), rows...), nil
}

// InsertRow appends a record built from fields["filename"].
func (f *FakeDB) InsertRow(_ context.Context, table string, fields map[string]any) error {
	filename, _ := fields["filename"].(string)
	f.Calls = append(f.Calls, "insert "+table+" "+filename)

	if f.InsertErr != nil {
		if err := f.InsertErr(filename); err != nil {
			return err
		}
	}

	if _, ok := f.Tables[table]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}

	applied := f.Now()
	if v, ok := fields["applied"].(time.Time); ok {
		applied = v
	}

	f.Tables[table] = append(f.Tables[table], database.Record{Filename: filename, Applied: applied})

	return nil
}

// CreateDatabaseIfNotExists marks name as existing.
func (f *FakeDB) CreateDatabaseIfNotExists(_ context.Context, name string) error {
	f.Calls = append(f.Calls, "createdb "+name)
	f.Databases[name] = true

	return nil
}

// Close marks the client closed.
func (f *FakeDB) Close() error {
	f.Closed = true

	return nil
}

// ExecCount returns how many statements Exec accepted.
func (f *FakeDB) ExecCount() int {
	return len(f.Execs)
}
