package tracker

import (
	"context"
	"fmt"

	"github.com/chbrown/sql-patch/internal/database"
)

// Tracker manages the bookkeeping table that records applied patches.
// It has no uniqueness constraint; the rows present at the start of a run
// are taken as the truth about what has been applied.
type Tracker struct {
	db    database.Client
	table string
}

// New creates a Tracker for table, backed by db.
func New(db database.Client, table string) *Tracker {
	return &Tracker{db: db, table: table}
}

// Table returns the bookkeeping table name.
func (t *Tracker) Table() string {
	return t.table
}

// EnsureTable creates the bookkeeping table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	if err := t.db.CreateTableIfNotExists(ctx, t.table, Columns()); err != nil {
		return fmt.Errorf("creating bookkeeping table %s: %w", t.table, err)
	}

	return nil
}

// GetApplied returns every recorded patch in table order.
func (t *Tracker) GetApplied(ctx context.Context) ([]database.Record, error) {
	records, err := t.db.SelectAll(ctx, t.table)
	if err != nil {
		return nil, fmt.Errorf("querying applied patches: %w", err)
	}

	return records, nil
}

// AppliedSet returns the set of recorded filenames.
func (t *Tracker) AppliedSet(ctx context.Context) (map[string]struct{}, error) {
	records, err := t.GetApplied(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[r.Filename] = struct{}{}
	}

	return set, nil
}

// RecordApplied inserts a row for filename; applied takes its column default.
func (t *Tracker) RecordApplied(ctx context.Context, filename string) error {
	if err := t.db.InsertRow(ctx, t.table, map[string]any{ColumnFilename: filename}); err != nil {
		return fmt.Errorf("recording patch %s as applied: %w", filename, err)
	}

	return nil
}
