package model

import "time"

// CopyOperation folds one export/import pair into a single display item.
// It is derived on demand and never stored.
type CopyOperation struct {
	SourceCourseID      string    `json:"source_course_id"`
	DestinationCourseID string    `json:"destination_course_id"`
	Status              JobStatus `json:"status"`
	Progress            float64   `json:"progress"`
	Operation           string    `json:"operation"`
	ActiveJobID         string    `json:"active_job_id"`
	ExportJobID         string    `json:"export_job_id"`
	ImportJobID         string    `json:"import_job_id"`
	CreatedAt           time.Time `json:"created_at"`
}
