package archive

import (
	"context"
	"fmt"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/infra/storage"

	"github.com/rs/zerolog"
)

var _ adapter.Importer = (*CourseImporter)(nil)

// CourseImporter writes an archive onto an existing course.
type CourseImporter struct {
	courses repository.CourseRepository
	store   storage.ObjectStorage
	log     *zerolog.Logger
}

func NewCourseImporter(courses repository.CourseRepository, store storage.ObjectStorage, logger *zerolog.Logger) *CourseImporter {
	compLog := logger.With().Str("component", "CourseImporter").Logger()
	return &CourseImporter{courses: courses, store: store, log: &compLog}
}

// Convert checks that the archive is readable and the target exists.
func (i *CourseImporter) Convert(ctx context.Context, h *adapter.ArchiveHandle, targetCourseID string) error {
	if h == nil {
		return domain.ErrInvalidArgument
	}
	a, err := load(ctx, i.store, h.Key)
	if err != nil {
		return err
	}
	if err := a.validate(); err != nil {
		return err
	}
	if a.SourceCourseID == targetCourseID {
		return fmt.Errorf("%w: archive would overwrite its own source", domain.ErrArchiveInvalid)
	}
	if _, err := i.courses.FindByID(ctx, repository.NoTX, targetCourseID); err != nil {
		return fmt.Errorf("load target course: %w", err)
	}
	return nil
}

func (i *CourseImporter) Run(ctx context.Context, h *adapter.ArchiveHandle, targetCourseID string, opts adapter.ImportOptions, sink adapter.ProgressSink) error {
	a, err := load(ctx, i.store, h.Key)
	if err != nil {
		return err
	}
	sink.Report(ctx, 0.2)

	sections := make([]model.Section, 0, len(a.Sections))
	for n, s := range a.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		sections = append(sections, s)
		sink.Report(ctx, 0.2+0.6*float64(n+1)/float64(len(a.Sections)))
	}

	members := selectMembers(a.MemberIDs, opts)
	if err := i.courses.ReplaceContent(ctx, repository.NoTX, targetCourseID, a.FullName, a.Summary, sections, members); err != nil {
		return fmt.Errorf("write course content: %w", err)
	}
	i.log.Debug().Str("target_course_id", targetCourseID).Int("sections", len(sections)).Int("members", len(members)).Msg("archive imported")
	return nil
}

// selectMembers keeps no members unless member data is requested, then
// either all of them or only the listed ones.
func selectMembers(all []string, opts adapter.ImportOptions) []string {
	if !opts.IncludeMemberData {
		return nil
	}
	if len(opts.KeepMemberIDs) == 0 {
		return all
	}
	keep := make(map[string]struct{}, len(opts.KeepMemberIDs))
	for _, id := range opts.KeepMemberIDs {
		keep[id] = struct{}{}
	}
	var out []string
	for _, id := range all {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
