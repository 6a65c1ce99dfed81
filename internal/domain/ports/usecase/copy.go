package usecase

import (
	"context"

	"course-copy/internal/domain/model"
)

// CopyRequestUseCase turns a copy request into a paired export/import job
// and hands one unit of work to the background queue.
type CopyRequestUseCase interface {
	Submit(ctx context.Context, req *model.CopyRequest) (*model.CopyTask, error)
}

type CopyStatusUseCase interface {
	// GetStatus returns one view per known id, in request order. Unknown ids
	// are skipped; a known id the requester may not read fails the call.
	GetStatus(ctx context.Context, requester model.Requester, jobIDs []string) ([]model.JobStatusView, error)
}

// CopyListingUseCase reconciles a user's export/import pairs into the
// in-progress copies shown to them.
type CopyListingUseCase interface {
	ListForUser(ctx context.Context, ownerID, sourceCourseID string) ([]*model.CopyOperation, error)
}
