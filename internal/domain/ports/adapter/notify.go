package adapter

import (
	"context"

	"course-copy/internal/domain/model"
)

// NotificationChannel delivers a rendered message to one user.
type NotificationChannel interface {
	Send(ctx context.Context, recipient *model.User, subject, body string) error
}

// Authorizer decides whether a requester may read a job.
type Authorizer interface {
	CanView(ctx context.Context, requester model.Requester, job *model.JobRecord) (bool, error)
}
