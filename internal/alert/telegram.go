// Package alert raises admin notifications for failures that would
// otherwise only be visible in logs and the queue's archive.
package alert

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// Notifier delivers a short admin-facing message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram builds a notifier posting to the admin chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}
