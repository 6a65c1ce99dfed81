package usecase

import (
	"context"
	"fmt"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	ucport "course-copy/internal/domain/ports/usecase"

	"github.com/rs/zerolog"
)

// MaxStatusBatch bounds how many ids one status poll may ask for.
const MaxStatusBatch = 100

var _ ucport.CopyStatusUseCase = (*copyStatusUC)(nil)

type copyStatusUC struct {
	jobs  repository.CopyJobRepository
	authz adapter.Authorizer
	log   *zerolog.Logger
}

func NewCopyStatusUseCase(jobs repository.CopyJobRepository, authz adapter.Authorizer, logger *zerolog.Logger) *copyStatusUC {
	return &copyStatusUC{jobs: jobs, authz: authz, log: logger}
}

func (u *copyStatusUC) GetStatus(ctx context.Context, requester model.Requester, jobIDs []string) ([]model.JobStatusView, error) {
	ids := dedupe(jobIDs)
	if len(ids) == 0 || len(ids) > MaxStatusBatch {
		return nil, fmt.Errorf("%w: between 1 and %d job ids required", domain.ErrInvalidArgument, MaxStatusBatch)
	}

	jobs, err := u.jobs.FindByIDs(ctx, repository.NoTX, ids)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	byID := make(map[string]*model.JobRecord, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	out := make([]model.JobStatusView, 0, len(jobs))
	for _, id := range ids {
		j, ok := byID[id]
		if !ok {
			continue
		}
		allowed, err := u.authz.CanView(ctx, requester, j)
		if err != nil {
			return nil, fmt.Errorf("authorize job %s: %w", id, err)
		}
		if !allowed {
			u.log.Warn().Str("job_id", id).Str("user_id", requester.UserID).Msg("status read denied")
			return nil, domain.ErrForbidden
		}
		out = append(out, model.JobStatusView{
			JobID:     j.ID,
			Status:    j.Status,
			Progress:  j.Progress,
			Operation: j.Operation(),
		})
	}
	return out, nil
}

// AllTerminal tells a poller it can stop.
func AllTerminal(views []model.JobStatusView) bool {
	for _, v := range views {
		if !v.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
