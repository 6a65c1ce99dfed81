package usecase

import (
	"context"

	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
)

var _ adapter.Authorizer = OwnerAuthorizer{}

// OwnerAuthorizer lets the initiator and admins read a job.
type OwnerAuthorizer struct{}

func (OwnerAuthorizer) CanView(_ context.Context, requester model.Requester, job *model.JobRecord) (bool, error) {
	if requester.UserID == "" || job == nil {
		return false, nil
	}
	return requester.IsAdmin || job.OwnerID == requester.UserID, nil
}
