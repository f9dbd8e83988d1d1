// Package notifier sends price alerts to a Telegram chat.
package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sjsage522/pricewatch/internal/alert"
	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// Sender is the part of the bot API used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to one chat.
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram authorizes the bot token against the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, errors.NewConfiguration("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required", nil)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.NewConfiguration("telegram authorization failed", err)
	}
	bot.Debug = false
	logger.ForNotifier().Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender uses an existing sender
func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// NotifyAlert sends the alert as a chat message
func (t *Telegram) NotifyAlert(ctx context.Context, a models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	icon := "📈"
	if a.NewPrice < a.OldPrice {
		icon = "📉"
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s Price alert\n%s", icon, alert.Describe(a)))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
