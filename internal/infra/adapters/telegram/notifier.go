package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
)

var _ adapter.NotificationChannel = (*Notifier)(nil)

// sender is the subset of *tgbotapi.BotAPI used for delivery.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers copy notifications as Telegram chat messages.
type Notifier struct {
	bot sender
	log zerolog.Logger
}

// NewNotifier connects to the Bot API with token.
func NewNotifier(token string, logger *zerolog.Logger) (*Notifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newNotifier(bot, logger), nil
}

func newNotifier(bot sender, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		bot: bot,
		log: logger.With().Str("component", "TelegramNotifier").Logger(),
	}
}

// Send posts subject and body to the recipient's Telegram chat.
func (n *Notifier) Send(ctx context.Context, recipient *model.User, subject, body string) error {
	if recipient.IsZero() || recipient.TelegramID == 0 {
		return domain.ErrNoDeliveryAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(recipient.TelegramID, formatMessage(subject, body))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.log.Debug().Str("user_id", recipient.ID).Int64("tg_id", recipient.TelegramID).Msg("notification sent")
	return nil
}

func formatMessage(subject, body string) string {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	}
	return subject + "\n\n" + body
}
