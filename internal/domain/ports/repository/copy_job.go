package repository

import (
	"context"
	"time"

	"course-copy/internal/domain/model"
)

// CopyJobRepository is the job record store. Status changes are guarded by
// the expected current status so concurrent writers cannot move a job
// backwards.
type CopyJobRepository interface {
	// CreatePair inserts both records of a copy. Callers run it inside a tx
	// so the pairing is atomic.
	CreatePair(ctx context.Context, tx Tx, export, imp *model.JobRecord) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.JobRecord, error)
	// FindByIDs skips unknown ids instead of failing.
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.JobRecord, error)
	// Transition moves a job from `from` to `to`. It returns
	// domain.ErrInvalidTransition when the row is not in `from`. Terminal
	// targets force progress to 1.0.
	Transition(ctx context.Context, tx Tx, id string, from, to model.JobStatus, lastError string) error
	// Fail moves any non-terminal job to FINISHED_ERROR. It returns
	// domain.ErrInvalidTransition when the job is already terminal.
	Fail(ctx context.Context, tx Tx, id string, lastError string) error
	// UpdateProgress never lowers progress and only writes while EXECUTING.
	UpdateProgress(ctx context.Context, tx Tx, id string, progress float64) error
	// ListActiveByOwner returns the owner's jobs except those whose pair is
	// fully terminal, newest first.
	ListActiveByOwner(ctx context.Context, tx Tx, ownerID string) ([]*model.JobRecord, error)
	// ListStale returns EXECUTING jobs last updated before the cutoff and
	// exports still AWAITING that were created before it (their task was
	// lost before the worker touched them).
	ListStale(ctx context.Context, tx Tx, updatedBefore time.Time) ([]*model.JobRecord, error)
}
