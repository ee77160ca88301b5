package telegram

import (
	"golang-sentiment-quant/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier defines the interface for a Telegram notifier.
type Notifier interface {
	SendMessage(text string) error
}

// client is an implementation of Notifier.
type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient creates a new Telegram notifier client.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &client{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// New returns a real client when notifications are enabled and a no-op notifier otherwise.
func New(cfg config.Telegram) (Notifier, error) {
	if !cfg.Enabled || cfg.BotToken == "" {
		return NopNotifier{}, nil
	}
	return NewClient(cfg.BotToken, cfg.ChatID)
}

// SendMessage sends a message to the configured Telegram chat. Long texts are split into parts.
func (c *client) SendMessage(text string) error {
	for _, part := range SplitMessage(text, MaxMessageLength) {
		msg := tgbotapi.NewMessage(c.chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := c.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) SendMessage(string) error { return nil }
