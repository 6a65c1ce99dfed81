package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
)

var _ repository.CopyJobRepository = (*copyJobRepo)(nil)

type copyJobRepo struct {
	pool *pgxpool.Pool
}

func NewCopyJobRepo(pool *pgxpool.Pool) *copyJobRepo {
	return &copyJobRepo{pool: pool}
}

const jobColumns = `id, kind, subject_id, status, progress, owner_id, paired_job_id, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (*model.JobRecord, error) {
	var j model.JobRecord
	var kind, status string
	if err := row.Scan(&j.ID, &kind, &j.SubjectID, &status, &j.Progress, &j.OwnerID,
		&j.PairedJobID, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	return &j, nil
}

func (r *copyJobRepo) CreatePair(ctx context.Context, tx repository.Tx, export, imp *model.JobRecord) error {
	if !export.PairedWith(imp) {
		return domain.ErrJobPairMismatch
	}
	// One statement, so the paired_job_id references hold on both rows.
	const q = `
INSERT INTO copy_jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10),
       ($11,$12,$13,$14,$15,$16,$17,$18,$19,$20);`
	_, err := execSQL(ctx, r.pool, tx, q,
		export.ID, string(export.Kind), export.SubjectID, string(export.Status), export.Progress, export.OwnerID, export.PairedJobID, export.LastError, export.CreatedAt, export.UpdatedAt,
		imp.ID, string(imp.Kind), imp.SubjectID, string(imp.Status), imp.Progress, imp.OwnerID, imp.PairedJobID, imp.LastError, imp.CreatedAt, imp.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *copyJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRecord, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM copy_jobs WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *copyJobRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.JobRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, tx, `SELECT `+jobColumns+` FROM copy_jobs WHERE id = ANY($1);`, ids)
}

func (r *copyJobRepo) Transition(ctx context.Context, tx repository.Tx, id string, from, to model.JobStatus, lastError string) error {
	if !model.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}
	const q = `
UPDATE copy_jobs
   SET status = $3,
       last_error = $4,
       progress = CASE WHEN $5 THEN 1 ELSE progress END,
       updated_at = NOW()
 WHERE id = $1 AND status = $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to), lastError, to.IsTerminal())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, tx, id)
	}
	return nil
}

func (r *copyJobRepo) Fail(ctx context.Context, tx repository.Tx, id string, lastError string) error {
	const q = `
UPDATE copy_jobs
   SET status = 'finished_error', last_error = $2, progress = 1, updated_at = NOW()
 WHERE id = $1 AND status IN ('awaiting', 'executing');`
	tag, err := execSQL(ctx, r.pool, tx, q, id, lastError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, tx, id)
	}
	return nil
}

func (r *copyJobRepo) UpdateProgress(ctx context.Context, tx repository.Tx, id string, progress float64) error {
	const q = `
UPDATE copy_jobs
   SET progress = GREATEST(progress, $2), updated_at = NOW()
 WHERE id = $1 AND status = 'executing';`
	_, err := execSQL(ctx, r.pool, tx, q, id, progress)
	return err
}

func (r *copyJobRepo) ListActiveByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.JobRecord, error) {
	const q = `
SELECT j.id, j.kind, j.subject_id, j.status, j.progress, j.owner_id, j.paired_job_id, j.last_error, j.created_at, j.updated_at
  FROM copy_jobs j
  JOIN copy_jobs p ON p.id = j.paired_job_id
 WHERE j.owner_id = $1
   AND NOT (j.status IN ('finished_ok', 'finished_error') AND p.status IN ('finished_ok', 'finished_error'))
 ORDER BY j.created_at DESC;`
	return r.list(ctx, tx, q, ownerID)
}

func (r *copyJobRepo) ListStale(ctx context.Context, tx repository.Tx, updatedBefore time.Time) ([]*model.JobRecord, error) {
	const q = `SELECT ` + jobColumns + ` FROM copy_jobs
		WHERE (status = 'executing' AND updated_at < $1)
		   OR (kind = 'export' AND status = 'awaiting' AND created_at < $1)
		ORDER BY updated_at;`
	return r.list(ctx, tx, q, updatedBefore)
}

func (r *copyJobRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.JobRecord, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// missOrConflict explains a guarded update that touched no row.
func (r *copyJobRepo) missOrConflict(ctx context.Context, tx repository.Tx, id string) error {
	if _, err := r.FindByID(ctx, tx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}
