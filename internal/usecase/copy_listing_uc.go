package usecase

import (
	"context"
	"fmt"
	"sort"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
	ucport "course-copy/internal/domain/ports/usecase"

	"github.com/rs/zerolog"
)

var _ ucport.CopyListingUseCase = (*copyListingUC)(nil)

type copyListingUC struct {
	jobs repository.CopyJobRepository
	log  *zerolog.Logger
}

func NewCopyListingUseCase(jobs repository.CopyJobRepository, logger *zerolog.Logger) *copyListingUC {
	return &copyListingUC{jobs: jobs, log: logger}
}

func (u *copyListingUC) ListForUser(ctx context.Context, ownerID, sourceCourseID string) ([]*model.CopyOperation, error) {
	if ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	jobs, err := u.jobs.ListActiveByOwner(ctx, repository.NoTX, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	byID := make(map[string]*model.JobRecord, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	// The store already drops fully terminal pairs, so a partner missing
	// here is unusual; fetch it rather than guessing.
	var missing []string
	for _, j := range jobs {
		if _, ok := byID[j.PairedJobID]; !ok && j.PairedJobID != "" {
			missing = append(missing, j.PairedJobID)
		}
	}
	if len(missing) > 0 {
		extra, err := u.jobs.FindByIDs(ctx, repository.NoTX, missing)
		if err != nil {
			return nil, fmt.Errorf("load paired jobs: %w", err)
		}
		for _, j := range extra {
			byID[j.ID] = j
		}
	}

	var out []*model.CopyOperation
	for _, j := range jobs {
		pair := byID[j.PairedJobID]
		var op *model.CopyOperation
		switch j.Kind {
		case model.JobKindExport:
			op = exportOperation(j, pair)
		case model.JobKindImport:
			op = importOperation(j, pair)
		}
		if op == nil {
			continue
		}
		if sourceCourseID != "" && op.SourceCourseID != sourceCourseID {
			continue
		}
		out = append(out, op)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// exportOperation reports an export that is still running or waiting.
func exportOperation(export, imp *model.JobRecord) *model.CopyOperation {
	if export.Status.IsTerminal() {
		return nil
	}
	op := &model.CopyOperation{
		SourceCourseID: export.SubjectID,
		Status:         export.Status,
		Progress:       export.Progress,
		Operation:      export.Operation(),
		ActiveJobID:    export.ID,
		ExportJobID:    export.ID,
		ImportJobID:    export.PairedJobID,
		CreatedAt:      export.CreatedAt,
	}
	if imp != nil {
		op.DestinationCourseID = imp.SubjectID
	}
	return op
}

// importOperation reports an import once its export has finished OK.
func importOperation(imp, export *model.JobRecord) *model.CopyOperation {
	if export == nil || imp.PendingSource(export) || export.Status != model.JobStatusFinishedOK {
		return nil
	}
	return &model.CopyOperation{
		SourceCourseID:      export.SubjectID,
		DestinationCourseID: imp.SubjectID,
		Status:              imp.Status,
		Progress:            imp.Progress,
		Operation:           imp.Operation(),
		ActiveJobID:         imp.ID,
		ExportJobID:         export.ID,
		ImportJobID:         imp.ID,
		CreatedAt:           imp.CreatedAt,
	}
}
