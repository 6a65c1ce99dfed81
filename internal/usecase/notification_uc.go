package usecase

import (
	"context"
	"fmt"
	"strings"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	ucport "course-copy/internal/domain/ports/usecase"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ucport.CompletionNotifier = (*completionNotifier)(nil)

// NotificationTemplates are admin-configured message templates. The
// failure pair falls back to the success pair when empty.
type NotificationTemplates struct {
	Subject       string
	Body          string
	FailedSubject string
	FailedBody    string
	LinkBaseURL   string
}

const copyOperationName = "course copy"

type completionNotifier struct {
	users   repository.UserRepository
	channel adapter.NotificationChannel
	tpl     NotificationTemplates
	log     *zerolog.Logger
}

func NewCompletionNotifier(users repository.UserRepository, channel adapter.NotificationChannel, tpl NotificationTemplates, logger *zerolog.Logger) *completionNotifier {
	compLog := logger.With().Str("component", "CompletionNotifier").Logger()
	return &completionNotifier{users: users, channel: channel, tpl: tpl, log: &compLog}
}

func (n *completionNotifier) NotifyCompletion(ctx context.Context, export, imp *model.JobRecord) error {
	if export == nil || imp == nil {
		return domain.ErrInvalidArgument
	}
	if !export.Status.IsTerminal() || !imp.Status.IsTerminal() {
		return fmt.Errorf("%w: copy not finished (%s/%s)", domain.ErrUnexpectedJobState, export.Status, imp.Status)
	}

	user, err := n.users.FindByID(ctx, repository.NoTX, imp.OwnerID)
	if err != nil {
		return fmt.Errorf("load recipient %s: %w", imp.OwnerID, err)
	}

	succeeded := export.Status == model.JobStatusFinishedOK && imp.Status == model.JobStatusFinishedOK
	subjectTpl, bodyTpl := n.tpl.Subject, n.tpl.Body
	tc := TemplateContext{Operation: copyOperationName, JobID: imp.ID, User: user}
	if succeeded {
		tc.Link = n.courseLink(imp.SubjectID)
	} else {
		if n.tpl.FailedSubject != "" {
			subjectTpl = n.tpl.FailedSubject
		}
		if n.tpl.FailedBody != "" {
			bodyTpl = n.tpl.FailedBody
		}
	}

	subject := RenderTemplate(subjectTpl, tc)
	body := RenderTemplate(bodyTpl, tc)
	if err := n.channel.Send(ctx, user, subject, body); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	n.log.Info().Str("import_job_id", imp.ID).Str("user_id", user.ID).Bool("success", succeeded).Msg("copy notification sent")
	return nil
}

func (n *completionNotifier) courseLink(courseID string) string {
	if n.tpl.LinkBaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(n.tpl.LinkBaseURL, "/") + "/course/view?id=" + courseID
}
