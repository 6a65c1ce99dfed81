package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Section struct {
	Position   int      `json:"position"`
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	Activities []string `json:"activities"`
}

// Course is the unit a copy reads from and writes to.
type Course struct {
	ID         string
	CategoryID string
	FullName   string
	ShortName  string
	IDNumber   string
	Visible    bool
	StartAt    *time.Time
	EndAt      *time.Time
	Summary    string
	Sections   []Section
	MemberIDs  []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CourseOverrides are the caller-supplied values written over the
// importer's defaults once the import phase has succeeded.
type CourseOverrides struct {
	FullName  string
	ShortName string
	IDNumber  string
	Visible   bool
	StartAt   *time.Time
	EndAt     *time.Time
}

// NewPlaceholderCourse allocates the empty, hidden destination of a copy.
// The provisional short name carries a random suffix so it never collides
// with the final one.
func NewPlaceholderCourse(req *CopyRequest, now time.Time) *Course {
	id := uuid.NewString()
	return &Course{
		ID:         id,
		CategoryID: req.CategoryID,
		FullName:   req.FullName + " (copy in progress)",
		ShortName:  req.ShortName + "-" + strings.SplitN(id, "-", 2)[0],
		Visible:    false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *Course) Apply(o CourseOverrides) {
	c.FullName = o.FullName
	c.ShortName = o.ShortName
	c.IDNumber = o.IDNumber
	c.Visible = o.Visible
	c.StartAt = o.StartAt
	c.EndAt = o.EndAt
	c.UpdatedAt = time.Now()
}
