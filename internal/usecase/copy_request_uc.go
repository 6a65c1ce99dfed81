package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	ucport "course-copy/internal/domain/ports/usecase"
	"course-copy/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ucport.CopyRequestUseCase = (*copyRequestUC)(nil)

type copyRequestUC struct {
	jobs       repository.CopyJobRepository
	courses    repository.CourseRepository
	categories repository.CategoryRepository
	requests   repository.CopyRequestRepository
	tm         repository.TransactionManager
	queue      adapter.TaskQueue
	log        *zerolog.Logger
	now        func() time.Time
}

func NewCopyRequestUseCase(
	jobs repository.CopyJobRepository,
	courses repository.CourseRepository,
	categories repository.CategoryRepository,
	requests repository.CopyRequestRepository,
	tm repository.TransactionManager,
	queue adapter.TaskQueue,
	logger *zerolog.Logger,
) *copyRequestUC {
	compLog := logger.With().Str("component", "CopyRequestUC").Logger()
	return &copyRequestUC{
		jobs:       jobs,
		courses:    courses,
		categories: categories,
		requests:   requests,
		tm:         tm,
		queue:      queue,
		log:        &compLog,
		now:        time.Now,
	}
}

func (u *copyRequestUC) Submit(ctx context.Context, req *model.CopyRequest) (*model.CopyTask, error) {
	defer logging.TraceDuration(u.log, "CopyRequestUC.Submit")()

	if req == nil {
		return nil, domain.ErrInvalidArgument
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	source, err := u.courses.FindByID(ctx, repository.NoTX, req.SourceCourseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: source course %s", domain.ErrNotFound, req.SourceCourseID)
		}
		return nil, fmt.Errorf("load source course: %w", err)
	}
	ok, err := u.categories.Exists(ctx, repository.NoTX, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("lookup category: %w", err)
	}
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	taken, err := u.courses.ShortNameExists(ctx, repository.NoTX, req.ShortName)
	if err != nil {
		return nil, fmt.Errorf("check short name: %w", err)
	}
	if taken {
		return nil, domain.ErrShortNameTaken
	}

	now := u.now()
	placeholder := model.NewPlaceholderCourse(req, now)
	export, imp := model.NewJobPair(source.ID, placeholder.ID, req.OwnerID, now)
	req.ExportJobID = export.ID
	req.CreatedAt = now

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.courses.Create(ctx, tx, placeholder); err != nil {
			return fmt.Errorf("create placeholder course: %w", err)
		}
		if err := u.jobs.CreatePair(ctx, tx, export, imp); err != nil {
			return fmt.Errorf("create job pair: %w", err)
		}
		if err := u.requests.Save(ctx, tx, req); err != nil {
			return fmt.Errorf("save copy request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	task := model.CopyTask{ExportJobID: export.ID, ImportJobID: imp.ID}
	if err := u.queue.Enqueue(ctx, task); err != nil {
		// Nothing will ever run these jobs; make them terminal for pollers.
		reason := "enqueue failed: " + err.Error()
		if ferr := u.jobs.Fail(ctx, repository.NoTX, export.ID, reason); ferr != nil {
			u.log.Error().Err(ferr).Str("export_job_id", export.ID).Msg("could not fail unqueued export job")
		}
		if ferr := u.jobs.Fail(ctx, repository.NoTX, imp.ID, reason); ferr != nil {
			u.log.Error().Err(ferr).Str("import_job_id", imp.ID).Msg("could not fail unqueued import job")
		}
		return nil, fmt.Errorf("enqueue copy task: %w", err)
	}

	u.log.Info().
		Str("export_job_id", export.ID).
		Str("import_job_id", imp.ID).
		Str("course_id", source.ID).
		Str("target_course_id", placeholder.ID).
		Msg("copy queued")
	return &task, nil
}
