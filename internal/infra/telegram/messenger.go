// Package telegram wraps the Bot API client behind a small messenger
// interface so the dispatcher and command handlers can be tested without the
// network.
package telegram

import (
	"context"
	"errors"
	"fmt"
)

// ErrRejected reports that Telegram refused the message for this chat: the
// user blocked the bot, deleted their account or the chat is gone. The
// subscriber should be marked blocked instead of retried.
var ErrRejected = errors.New("telegram: message rejected")

// ErrNetworkFailure reports a transient delivery problem. The message should
// be queued for redelivery.
var ErrNetworkFailure = errors.New("telegram: network failure")

// DeliveryError wraps a Bot API failure with its classification.
type DeliveryError struct {
	ChatID int64
	Code   int
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to chat %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Messenger sends, edits and deletes chat messages.
type Messenger interface {
	// Send delivers text to a chat and returns the created message ID.
	Send(ctx context.Context, chatID int64, text string) (int, error)
	// Edit replaces the text of an existing message.
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	// Delete removes a message from a chat.
	Delete(ctx context.Context, chatID int64, messageID int) error
}
