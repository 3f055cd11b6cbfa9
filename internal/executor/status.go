package executor

import (
	"context"

	"github.com/chbrown/sql-patch/internal/database"
	"github.com/chbrown/sql-patch/internal/patch"
)

// Report describes the bookkeeping table and the patches directory side by side.
type Report struct {
	Applied []database.Record // table order
	Pending []string          // application order
}

// Status ensures the bookkeeping table exists and reports which patches are
// recorded and which are still to be applied. Nothing is executed.
func (e *Executor) Status(ctx context.Context) (*Report, error) {
	if err := e.tracker.EnsureTable(ctx); err != nil {
		return nil, newError(ErrSchema, "", err)
	}

	names, err := patch.List(e.dir)
	if err != nil {
		return nil, newError(ErrIO, "", err)
	}

	records, err := e.tracker.GetApplied(ctx)
	if err != nil {
		return nil, newError(ErrQuery, "", err)
	}

	applied := make(map[string]struct{}, len(records))
	for _, r := range records {
		applied[r.Filename] = struct{}{}
	}

	return &Report{
		Applied: records,
		Pending: patch.Pending(names, applied),
	}, nil
}
