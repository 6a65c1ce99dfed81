package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// JobKind tells which phase of a copy a JobRecord tracks.
type JobKind string

const (
	JobKindExport JobKind = "export"
	JobKindImport JobKind = "import"
)

type JobStatus string

const (
	JobStatusAwaiting      JobStatus = "awaiting"
	JobStatusExecuting     JobStatus = "executing"
	JobStatusFinishedOK    JobStatus = "finished_ok"
	JobStatusFinishedError JobStatus = "finished_error"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinishedOK || s == JobStatusFinishedError
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusAwaiting, JobStatusExecuting, JobStatusFinishedOK, JobStatusFinishedError:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one status to another.
// Terminal states never move; FINISHED_ERROR is reachable from either
// non-terminal state, FINISHED_OK only from EXECUTING.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusAwaiting:
		return to == JobStatusExecuting || to == JobStatusFinishedError
	case JobStatusExecuting:
		return to == JobStatusFinishedOK || to == JobStatusFinishedError
	}
	return false
}

// JobRecord is one phase (export or import) of a copy operation.
// SubjectID is the course being read for an export and the course being
// written for an import. PairedJobID points at the other phase.
type JobRecord struct {
	ID          string
	Kind        JobKind
	SubjectID   string
	Status      JobStatus
	Progress    float64
	OwnerID     string
	PairedJobID string
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewJobID returns a time-sortable opaque identifier.
func NewJobID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// NewJobPair allocates the cross-linked export/import records of one copy.
// Both start AWAITING; the pairing is fixed from here on.
func NewJobPair(sourceCourseID, targetCourseID, ownerID string, now time.Time) (export, imp *JobRecord) {
	exportID := NewJobID(now)
	importID := NewJobID(now)
	export = &JobRecord{
		ID:          exportID,
		Kind:        JobKindExport,
		SubjectID:   sourceCourseID,
		Status:      JobStatusAwaiting,
		OwnerID:     ownerID,
		PairedJobID: importID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	imp = &JobRecord{
		ID:          importID,
		Kind:        JobKindImport,
		SubjectID:   targetCourseID,
		Status:      JobStatusAwaiting,
		OwnerID:     ownerID,
		PairedJobID: exportID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return export, imp
}

// PendingSource is the derived condition of an import whose export has not
// finished successfully yet. It is never stored.
func (j *JobRecord) PendingSource(export *JobRecord) bool {
	if j.Kind != JobKindImport || j.Status != JobStatusAwaiting {
		return false
	}
	return export == nil || export.Status != JobStatusFinishedOK
}

// PairedWith checks both back-references and the kinds of the two records.
func (j *JobRecord) PairedWith(other *JobRecord) bool {
	if j == nil || other == nil {
		return false
	}
	return j.PairedJobID == other.ID && other.PairedJobID == j.ID && j.Kind != other.Kind
}

// Operation names the phase for status consumers.
func (j *JobRecord) Operation() string {
	if j.Kind == JobKindExport {
		return "course_export"
	}
	return "course_import"
}

// CopyTask is the unit of work enqueued for the worker.
type CopyTask struct {
	ExportJobID string `json:"export_job_id"`
	ImportJobID string `json:"import_job_id"`
}

// JobStatusView is the projection returned to status pollers.
type JobStatusView struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`
	Operation string    `json:"operation"`
}
