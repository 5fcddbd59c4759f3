package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the slice of *tgbotapi.BotAPI the messenger needs.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotMessenger implements Messenger on the Telegram Bot API.
type BotMessenger struct {
	api    botAPI
	logger *slog.Logger
}

// NewBot connects to the Bot API with the given token.
func NewBot(token string, logger *slog.Logger) (*BotMessenger, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return NewBotMessenger(api, logger), nil
}

// NewBotMessenger wraps an existing API client. Used by tests to inject a
// fake.
func NewBotMessenger(api botAPI, logger *slog.Logger) *BotMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotMessenger{api: api, logger: logger}
}

// Send delivers one HTML-formatted message and returns its ID.
func (m *BotMessenger) Send(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, m.classify(chatID, err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text of a previously sent message.
func (m *BotMessenger) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := m.api.Send(edit); err != nil {
		return m.classify(chatID, err)
	}
	return nil
}

// Delete removes a message from a chat.
func (m *BotMessenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return m.classify(chatID, err)
	}
	return nil
}

// classify maps a Bot API failure onto the delivery error taxonomy.
// Forbidden means the user blocked the bot; Bad Request covers deactivated
// accounts and vanished chats. Everything else is treated as transient.
func (m *BotMessenger) classify(chatID int64, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden, http.StatusBadRequest:
			m.logger.Info("chat rejected message",
				slog.Int64("chat_id", chatID),
				slog.Int("code", apiErr.Code),
				slog.String("message", apiErr.Message))
			return &DeliveryError{ChatID: chatID, Code: apiErr.Code, Err: ErrRejected}
		default:
			return &DeliveryError{ChatID: chatID, Code: apiErr.Code, Err: ErrNetworkFailure}
		}
	}
	return &DeliveryError{ChatID: chatID, Err: ErrNetworkFailure}
}
