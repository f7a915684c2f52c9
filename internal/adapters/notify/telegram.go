package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"campusevents/internal/domain"
)

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func newTelegramNotifier(config TelegramConfig, logger *slog.Logger) (domain.Notifier, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("telegram notifier: bot token is required")
	}
	if config.MediaChatID == 0 {
		return nil, fmt.Errorf("telegram notifier: media chat id is required")
	}
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram notifier: %w", err)
	}
	logger.Info("telegram notifier authorized", "account", bot.Self.UserName)
	return &telegramNotifier{
		bot:    bot,
		chatID: config.MediaChatID,
		logger: logger,
	}, nil
}

func (t *telegramNotifier) Remind(ctx context.Context, event *domain.EventWithCreator, kind domain.ReminderKind) error {
	return t.send(ctx, ReminderMessage(event, kind))
}

func (t *telegramNotifier) Announce(ctx context.Context, event *domain.EventWithCreator) error {
	return t.send(ctx, AnnouncementMessage(event))
}

func (t *telegramNotifier) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	// The v4 client has no context support; run the call in a goroutine so a
	// hung send cannot outlive the delivery timeout.
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return sinkErr("telegram send", err)
		}
		return nil
	case <-ctx.Done():
		return sinkErr("telegram send", ctx.Err())
	}
}
