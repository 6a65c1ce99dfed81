package usecase

import (
	"context"

	"course-copy/internal/domain/model"
)

// CompletionNotifier tells the initiator that a copy reached its end.
// Background workers depend on it to report finished pairs.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, export, imp *model.JobRecord) error
}
