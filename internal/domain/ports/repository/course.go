package repository

import (
	"context"

	"course-copy/internal/domain/model"
)

type CourseRepository interface {
	Create(ctx context.Context, tx Tx, c *model.Course) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Course, error)
	ShortNameExists(ctx context.Context, tx Tx, shortName string) (bool, error)
	// ReplaceContent is the importer's write: content plus its default name.
	ReplaceContent(ctx context.Context, tx Tx, id string, fullName, summary string, sections []model.Section, memberIDs []string) error
	ApplyOverrides(ctx context.Context, tx Tx, id string, o model.CourseOverrides) error
}

type CategoryRepository interface {
	Exists(ctx context.Context, tx Tx, id string) (bool, error)
}

type CopyRequestRepository interface {
	Save(ctx context.Context, tx Tx, req *model.CopyRequest) error
	FindByExportJobID(ctx context.Context, tx Tx, exportJobID string) (*model.CopyRequest, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
}
