package usecase

import (
	"strings"

	"course-copy/internal/domain/model"
)

// TemplateContext holds the values a notification template may reference.
type TemplateContext struct {
	Operation string
	JobID     string
	User      *model.User
	Link      string
}

// RenderTemplate substitutes the recognised placeholders in tpl. Anything
// else in braces is left as literal text.
func RenderTemplate(tpl string, tc TemplateContext) string {
	var first, last, email, username string
	if tc.User != nil {
		first, last = tc.User.FirstName, tc.User.LastName
		email, username = tc.User.Email, tc.User.Username
	}
	return strings.NewReplacer(
		"{operation}", tc.Operation,
		"{job_id}", tc.JobID,
		"{user_firstname}", first,
		"{user_lastname}", last,
		"{user_email}", email,
		"{user_username}", username,
		"{link}", tc.Link,
	).Replace(tpl)
}
