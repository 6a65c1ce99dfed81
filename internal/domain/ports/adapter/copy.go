package adapter

import (
	"context"

	"course-copy/internal/domain/model"
)

// ArchiveHandle points at a staged copy archive.
type ArchiveHandle struct {
	Key            string
	SourceCourseID string
	Size           int64
}

// ProgressSink receives fractional completion of one phase.
type ProgressSink interface {
	Report(ctx context.Context, fraction float64)
}

// Exporter serializes a course into a staged archive.
type Exporter interface {
	Run(ctx context.Context, sourceCourseID string, sink ProgressSink) (*ArchiveHandle, error)
	// Extract hands a finished archive over to the import target.
	Extract(ctx context.Context, h *ArchiveHandle, targetCourseID string) (*ArchiveHandle, error)
	// Release drops staging resources behind the handle.
	Release(ctx context.Context, h *ArchiveHandle) error
}

type ImportOptions struct {
	IncludeMemberData bool
	KeepMemberIDs     []string
}

// Importer materializes an archive onto an existing target course.
type Importer interface {
	Convert(ctx context.Context, h *ArchiveHandle, targetCourseID string) error
	Run(ctx context.Context, h *ArchiveHandle, targetCourseID string, opts ImportOptions, sink ProgressSink) error
}

// TaskQueue accepts orchestration units for the background worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, task model.CopyTask) error
}
