package tracker

import "github.com/chbrown/sql-patch/internal/database"

// DefaultTable is the bookkeeping table used when none is configured.
const DefaultTable = "_schema_patches"

// Column names of the bookkeeping table.
const (
	ColumnFilename = "filename"
	ColumnApplied  = "applied"
)

// Columns returns the bookkeeping table definition:
// filename TEXT NOT NULL, applied TIMESTAMP NOT NULL DEFAULT now.
func Columns() []database.Column {
	return []database.Column{
		{Name: ColumnFilename, Type: database.TypeText, NotNull: true},
		{Name: ColumnApplied, Type: database.TypeTimestamp, NotNull: true, DefaultNow: true},
	}
}
