package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
)

var _ repository.CopyRequestRepository = (*copyRequestRepo)(nil)

type copyRequestRepo struct {
	pool *pgxpool.Pool
}

func NewCopyRequestRepo(pool *pgxpool.Pool) *copyRequestRepo {
	return &copyRequestRepo{pool: pool}
}

func (r *copyRequestRepo) Save(ctx context.Context, tx repository.Tx, req *model.CopyRequest) error {
	const q = `
INSERT INTO copy_requests (
  export_job_id, owner_id, source_course_id, full_name, short_name, category_id,
  visible, start_at, end_at, id_number, include_member_data, keep_member_ids, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := execSQL(ctx, r.pool, tx, q,
		req.ExportJobID, req.OwnerID, req.SourceCourseID, req.FullName, req.ShortName, req.CategoryID,
		req.Visible, req.StartAt, req.EndAt, req.IDNumber, req.IncludeMemberData, nonNilStrings(req.KeepMemberIDs), req.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *copyRequestRepo) FindByExportJobID(ctx context.Context, tx repository.Tx, exportJobID string) (*model.CopyRequest, error) {
	const q = `
SELECT export_job_id, owner_id, source_course_id, full_name, short_name, category_id,
       visible, start_at, end_at, id_number, include_member_data, keep_member_ids, created_at
  FROM copy_requests WHERE export_job_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, exportJobID)
	if err != nil {
		return nil, err
	}
	var req model.CopyRequest
	if err := row.Scan(&req.ExportJobID, &req.OwnerID, &req.SourceCourseID, &req.FullName, &req.ShortName,
		&req.CategoryID, &req.Visible, &req.StartAt, &req.EndAt, &req.IDNumber, &req.IncludeMemberData,
		&req.KeepMemberIDs, &req.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &req, nil
}
