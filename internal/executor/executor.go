package executor

import (
	"context"
	"time"

	"github.com/chbrown/sql-patch/internal/database"
	"github.com/chbrown/sql-patch/internal/patch"
	"github.com/chbrown/sql-patch/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusPending   = "pending"
)

// ProgressEvent is emitted by the executor for each patch processed. Every
// failed or completed event is preceded by a starting event for the same file.
type ProgressEvent struct {
	Filename string
	Status   string
	Duration time.Duration
	Error    error
}

// Executor applies unapplied patches from one directory, one at a time,
// in filename order, recording each in the bookkeeping table.
//
// There is no locking: two executors running against the same bookkeeping
// table at once may both apply the same patch.
type Executor struct {
	db         database.Client
	tracker    *tracker.Tracker
	dir        string
	dryRun     bool
	onProgress func(ProgressEvent)
}

// Option configures an Executor.
type Option func(*Executor)

// WithDryRun reports the unapplied patches without executing or recording them.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each patch processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor that applies the patches in dir to db, tracking
// them in table.
func New(db database.Client, table, dir string, opts ...Option) *Executor {
	e := &Executor{
		db:      db,
		tracker: tracker.New(db, table),
		dir:     dir,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ApplyPatches applies every patch in dir not yet recorded in table and
// returns the newly applied filenames in application order. The first error
// stops the run; patches applied before it stay recorded.
func ApplyPatches(ctx context.Context, db database.Client, table, dir string, opts ...Option) ([]string, error) {
	return New(db, table, dir, opts...).Apply(ctx)
}

// Apply runs one pass over the patches directory. In dry-run mode it returns
// the patches that would be applied.
func (e *Executor) Apply(ctx context.Context) ([]string, error) {
	pending, err := e.pending(ctx)
	if err != nil {
		return nil, err
	}

	if e.dryRun {
		for _, name := range pending {
			e.fireProgress(ProgressEvent{Filename: name, Status: StatusPending})
		}

		return pending, nil
	}

	applied := make([]string, 0, len(pending))

	for _, name := range pending {
		if err := e.applyOne(ctx, name); err != nil {
			return applied, err
		}

		applied = append(applied, name)
	}

	return applied, nil
}

// pending ensures the bookkeeping table, then diffs the directory against it.
func (e *Executor) pending(ctx context.Context) ([]string, error) {
	if err := e.tracker.EnsureTable(ctx); err != nil {
		return nil, newError(ErrSchema, "", err)
	}

	names, err := patch.List(e.dir)
	if err != nil {
		return nil, newError(ErrIO, "", err)
	}

	applied, err := e.tracker.AppliedSet(ctx)
	if err != nil {
		return nil, newError(ErrQuery, "", err)
	}

	return patch.Pending(names, applied), nil
}

// applyOne reads, executes and records a single patch.
func (e *Executor) applyOne(ctx context.Context, name string) error {
	e.fireProgress(ProgressEvent{Filename: name, Status: StatusStarting})

	sql, err := patch.Read(e.dir, name)
	if err != nil {
		return e.fail(newError(ErrIO, name, err), 0)
	}

	start := time.Now()
	execErr := e.db.Exec(ctx, sql)
	duration := time.Since(start)

	if execErr != nil {
		return e.fail(newError(ErrExecution, name, execErr), duration)
	}

	if err := e.tracker.RecordApplied(ctx, name); err != nil {
		return e.fail(newError(ErrInsert, name, err), duration)
	}

	e.fireProgress(ProgressEvent{
		Filename: name,
		Status:   StatusCompleted,
		Duration: duration,
	})

	return nil
}

func (e *Executor) fail(err *Error, duration time.Duration) error {
	e.fireProgress(ProgressEvent{
		Filename: err.Filename,
		Status:   StatusFailed,
		Duration: duration,
		Error:    err,
	})

	return err
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
