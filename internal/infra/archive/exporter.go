package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/infra/storage"

	"github.com/rs/zerolog"
)

var _ adapter.Exporter = (*CourseExporter)(nil)

// CourseExporter snapshots a course into object storage.
type CourseExporter struct {
	courses repository.CourseRepository
	store   storage.ObjectStorage
	now     func() time.Time
	log     *zerolog.Logger
}

func NewCourseExporter(courses repository.CourseRepository, store storage.ObjectStorage, logger *zerolog.Logger) *CourseExporter {
	compLog := logger.With().Str("component", "CourseExporter").Logger()
	return &CourseExporter{courses: courses, store: store, now: time.Now, log: &compLog}
}

func (e *CourseExporter) Run(ctx context.Context, sourceCourseID string, sink adapter.ProgressSink) (*adapter.ArchiveHandle, error) {
	c, err := e.courses.FindByID(ctx, repository.NoTX, sourceCourseID)
	if err != nil {
		return nil, fmt.Errorf("load source course: %w", err)
	}
	sink.Report(ctx, 0.1)

	a := &Archive{
		Version:        FormatVersion,
		ExportedAt:     e.now().UTC(),
		SourceCourseID: c.ID,
		FullName:       c.FullName,
		Summary:        c.Summary,
		MemberIDs:      c.MemberIDs,
		Sections:       make([]model.Section, 0, len(c.Sections)),
	}
	for i, s := range c.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.Sections = append(a.Sections, s)
		sink.Report(ctx, 0.1+0.7*float64(i+1)/float64(len(c.Sections)))
	}

	key := path.Join("exports", c.ID, model.NewJobID(e.now())+".json")
	size, err := put(ctx, e.store, key, a)
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	sink.Report(ctx, 0.9)

	e.log.Debug().Str("course_id", c.ID).Str("archive", key).Int64("size", size).Msg("course exported")
	return &adapter.ArchiveHandle{Key: key, SourceCourseID: c.ID, Size: size}, nil
}

// Extract stages a copy of the archive under the import target, so the
// import never reads the export's own object.
func (e *CourseExporter) Extract(ctx context.Context, h *adapter.ArchiveHandle, targetCourseID string) (*adapter.ArchiveHandle, error) {
	if h == nil {
		return nil, domain.ErrInvalidArgument
	}
	a, err := load(ctx, e.store, h.Key)
	if err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	key := path.Join("imports", targetCourseID, path.Base(h.Key))
	size, err := put(ctx, e.store, key, a)
	if err != nil {
		return nil, fmt.Errorf("stage archive: %w", err)
	}
	return &adapter.ArchiveHandle{Key: key, SourceCourseID: h.SourceCourseID, Size: size}, nil
}

func (e *CourseExporter) Release(ctx context.Context, h *adapter.ArchiveHandle) error {
	if h == nil || h.Key == "" {
		return nil
	}
	return e.store.Delete(ctx, h.Key)
}
