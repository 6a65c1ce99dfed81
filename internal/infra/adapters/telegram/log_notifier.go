package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
)

var _ adapter.NotificationChannel = (*LogNotifier)(nil)

// LogNotifier implements adapter.NotificationChannel for local/dev runs.
// It logs messages instead of sending real Telegram messages.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger.With().Str("component", "LogNotifier").Logger()}
}

func (n *LogNotifier) Send(ctx context.Context, recipient *model.User, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := n.log.Info().Str("subject", subject).Str("body", body)
	if recipient != nil {
		ev = ev.Str("user_id", recipient.ID).Int64("tg_id", recipient.TelegramID)
	}
	ev.Msg("notification")
	return nil
}
