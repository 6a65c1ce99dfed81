package model

import (
	"fmt"
	"strings"
	"time"

	"course-copy/internal/domain"
)

// CopyRequest carries the caller's parameters of one course copy. It is
// persisted next to the export job so the worker can re-apply the values
// once the import has written its own defaults.
type CopyRequest struct {
	ExportJobID       string     `json:"-"`
	OwnerID           string     `json:"-"`
	SourceCourseID    string     `json:"source_course_id"`
	FullName          string     `json:"full_name"`
	ShortName         string     `json:"short_name"`
	CategoryID        string     `json:"category_id"`
	Visible           bool       `json:"visible"`
	StartAt           *time.Time `json:"start_at,omitempty"`
	EndAt             *time.Time `json:"end_at,omitempty"`
	IDNumber          string     `json:"id_number"`
	IncludeMemberData bool       `json:"include_member_data"`
	KeepMemberIDs     []string   `json:"keep_member_ids"`
	CreatedAt         time.Time  `json:"-"`
}

// Normalize trims free-text fields in place.
func (r *CopyRequest) Normalize() {
	r.SourceCourseID = strings.TrimSpace(r.SourceCourseID)
	r.FullName = strings.TrimSpace(r.FullName)
	r.ShortName = strings.TrimSpace(r.ShortName)
	r.CategoryID = strings.TrimSpace(r.CategoryID)
	r.IDNumber = strings.TrimSpace(r.IDNumber)
}

// Validate checks the shape of the request. Existence checks against
// stores (category, short name) happen in the use case.
func (r *CopyRequest) Validate() error {
	switch {
	case r.SourceCourseID == "":
		return fmt.Errorf("%w: source course is required", domain.ErrInvalidArgument)
	case r.OwnerID == "":
		return fmt.Errorf("%w: owner is required", domain.ErrInvalidArgument)
	case r.FullName == "":
		return fmt.Errorf("%w: full name is required", domain.ErrInvalidArgument)
	case r.ShortName == "":
		return fmt.Errorf("%w: short name is required", domain.ErrInvalidArgument)
	case r.CategoryID == "":
		return fmt.Errorf("%w: category is required", domain.ErrInvalidArgument)
	}
	if r.StartAt != nil && r.EndAt != nil && r.EndAt.Before(*r.StartAt) {
		return fmt.Errorf("%w: end date before start date", domain.ErrInvalidArgument)
	}
	if !r.IncludeMemberData && len(r.KeepMemberIDs) > 0 {
		return fmt.Errorf("%w: member ids given without member data", domain.ErrInvalidArgument)
	}
	return nil
}

// Overrides extracts the post-copy values applied after the import.
func (r *CopyRequest) Overrides() CourseOverrides {
	return CourseOverrides{
		FullName:  r.FullName,
		ShortName: r.ShortName,
		IDNumber:  r.IDNumber,
		Visible:   r.Visible,
		StartAt:   r.StartAt,
		EndAt:     r.EndAt,
	}
}
