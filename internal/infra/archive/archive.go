package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/infra/storage"
)

// FormatVersion is bumped whenever the archive layout changes.
const FormatVersion = 1

const contentType = "application/json"

// Archive is the portable snapshot of one course.
type Archive struct {
	Version        int             `json:"version"`
	ExportedAt     time.Time       `json:"exported_at"`
	SourceCourseID string          `json:"source_course_id"`
	FullName       string          `json:"full_name"`
	Summary        string          `json:"summary"`
	Sections       []model.Section `json:"sections"`
	MemberIDs      []string        `json:"member_ids"`
}

func (a *Archive) validate() error {
	if a.Version != FormatVersion {
		return fmt.Errorf("%w: version %d, want %d", domain.ErrArchiveInvalid, a.Version, FormatVersion)
	}
	if a.SourceCourseID == "" {
		return fmt.Errorf("%w: missing source course", domain.ErrArchiveInvalid)
	}
	return nil
}

func put(ctx context.Context, store storage.ObjectStorage, key string, a *Archive) (int64, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return 0, fmt.Errorf("encode archive: %w", err)
	}
	if err := store.Upload(ctx, key, bytes.NewReader(b), int64(len(b)), contentType); err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

func load(ctx context.Context, store storage.ObjectStorage, key string) (*Archive, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var a Archive
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveInvalid, err)
	}
	return &a, nil
}
