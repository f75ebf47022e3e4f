package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts completed sessions to a Telegram chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
	views  ViewSource
	jobs   JobSource
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, chatID int64, views ViewSource, jobs JobSource) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, views, jobs), nil
}

func newTelegramNotifier(bot sender, chatID int64, views ViewSource, jobs JobSource) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, views: views, jobs: jobs}
}

func (t *TelegramNotifier) NotifyCompletion(ctx context.Context, sessionID string) error {
	view, err := t.views.SessionView(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session view: %w", err)
	}
	job, err := t.jobs.GetJob(ctx, view.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	return t.SendMessage(FormatCompletion(job, view))
}

// SendMessage sends an HTML-formatted message to the configured chat.
func (t *TelegramNotifier) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}
