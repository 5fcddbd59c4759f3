// Package telegram routes incoming bot updates to the subscription use case
// and renders the replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tubenotify/internal/domain/entity"
	infratelegram "tubenotify/internal/infra/telegram"
	"tubenotify/internal/usecase/subscription"
)

// SubscriptionService is the slice of the subscription use case the command
// router needs.
type SubscriptionService interface {
	RegisterSubscriber(ctx context.Context, telegramID int64, firstName, username string) (*entity.Subscriber, error)
	Subscribe(ctx context.Context, subscriber *entity.Subscriber, rawURL string) (*entity.Channel, error)
	Unsubscribe(ctx context.Context, subscriber *entity.Subscriber, channelID int64) error
	ListChannels(ctx context.Context, subscriber *entity.Subscriber) ([]*entity.Channel, error)
	Stats(ctx context.Context) (*subscription.Stats, error)
	ListSubscribers(ctx context.Context, offset, limit int) ([]*entity.Subscriber, error)
}

const (
	replyWelcome  = "Hi! Send me a YouTube channel link and I will notify you about new videos and streams."
	replyHelp     = "Send a YouTube channel or video link to subscribe.\n\n/channels shows what you follow\n/unsubscribe &lt;id&gt; stops a subscription\n/info shows this text"
	replyInvalid  = "That does not look like a YouTube link. Send a channel or video URL."
	replyLimit    = "You reached your subscription limit. Unsubscribe from a channel first."
	replyError    = "Something went wrong, please try again later."
	replyUnknown  = "I don't know that command."
	replySlow     = "Too many requests, give me a second."
	replyEmpty    = "You are not subscribed to any channel yet."
	replyThinking = "Let me have a look at that link..."
)

// usersPageSize caps the subscriber listing in the admin command.
const usersPageSize = 50

// Handler consumes Telegram updates and answers them.
type Handler struct {
	service   SubscriptionService
	messenger infratelegram.Messenger
	throttle  *ChatThrottle
	admins    map[int64]struct{}
	logger    *slog.Logger
}

// NewHandler creates a Handler. throttle may be nil to disable per-chat rate
// limiting.
func NewHandler(
	service SubscriptionService,
	messenger infratelegram.Messenger,
	throttle *ChatThrottle,
	adminChats []int64,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[int64]struct{}, len(adminChats))
	for _, id := range adminChats {
		admins[id] = struct{}{}
	}
	return &Handler{
		service:   service,
		messenger: messenger,
		throttle:  throttle,
		admins:    admins,
		logger:    logger,
	}
}

// Run consumes the update channel until it closes or the context is
// cancelled.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate routes one update. Non-message updates are ignored.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}
	chatID := message.Chat.ID

	if h.throttle != nil && !h.throttle.Allow(chatID) {
		h.reply(ctx, chatID, replySlow)
		return
	}

	subscriber, err := h.service.RegisterSubscriber(ctx, message.From.ID, message.From.FirstName, message.From.UserName)
	if err != nil {
		h.logger.Error("subscriber registration failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
		h.reply(ctx, chatID, replyError)
		return
	}
	if subscriber.Status == entity.StatusBanned {
		return
	}

	if message.IsCommand() {
		h.handleCommand(ctx, chatID, subscriber, message.Command(), strings.TrimSpace(message.CommandArguments()))
		return
	}
	h.handleLink(ctx, chatID, subscriber, strings.TrimSpace(message.Text))
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, subscriber *entity.Subscriber, command, args string) {
	switch command {
	case "start":
		h.reply(ctx, chatID, replyWelcome)
	case "info":
		h.reply(ctx, chatID, replyHelp)
	case "channels":
		h.handleChannels(ctx, chatID, subscriber)
	case "unsubscribe":
		h.handleUnsubscribe(ctx, chatID, subscriber, args)
	case "stats":
		h.requireAdmin(ctx, chatID, h.handleStats)
	case "users":
		h.requireAdmin(ctx, chatID, h.handleUsers)
	default:
		h.reply(ctx, chatID, replyUnknown)
	}
}

// handleLink treats any plain message as a channel URL to subscribe to. A
// placeholder goes out immediately because resolving an unknown channel means
// scraping YouTube, which can take seconds; the placeholder is then edited
// into the outcome.
func (h *Handler) handleLink(ctx context.Context, chatID int64, subscriber *entity.Subscriber, text string) {
	if text == "" || !isYouTubeURL(text) {
		h.reply(ctx, chatID, replyInvalid)
		return
	}

	placeholderID, sendErr := h.messenger.Send(ctx, chatID, replyThinking)
	if sendErr != nil {
		h.logger.Warn("placeholder failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", sendErr.Error()))
	}

	channel, err := h.service.Subscribe(ctx, subscriber, text)

	var outcome string
	switch {
	case err == nil:
		outcome = fmt.Sprintf("Subscribed to <b>%s</b>. You will hear from me when something new appears.", channel.Name)
	case errors.Is(err, subscription.ErrSubscriptionLimit):
		outcome = replyLimit
	case errors.Is(err, entity.ErrNotFound):
		outcome = "I could not find a channel behind that link."
	default:
		var vErr *entity.ValidationError
		if errors.As(err, &vErr) {
			outcome = replyInvalid
			break
		}
		h.logger.Error("subscribe failed",
			slog.Int64("chat_id", chatID),
			slog.String("url", text),
			slog.String("error", err.Error()))
		outcome = replyError
	}

	if sendErr == nil {
		if editErr := h.messenger.Edit(ctx, chatID, placeholderID, outcome); editErr == nil {
			return
		}
	}
	h.reply(ctx, chatID, outcome)
}

// handleUnsubscribe removes one subscription by the channel ID shown in
// /channels.
func (h *Handler) handleUnsubscribe(ctx context.Context, chatID int64, subscriber *entity.Subscriber, args string) {
	channelID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		h.reply(ctx, chatID, "Tell me which channel: /unsubscribe &lt;id&gt; from the /channels list.")
		return
	}
	if err := h.service.Unsubscribe(ctx, subscriber, channelID); err != nil {
		h.logger.Error("unsubscribe failed",
			slog.Int64("chat_id", chatID),
			slog.Int64("channel_id", channelID),
			slog.String("error", err.Error()))
		h.reply(ctx, chatID, replyError)
		return
	}
	h.reply(ctx, chatID, "Done, you will not hear about that channel again.")
}

func (h *Handler) handleChannels(ctx context.Context, chatID int64, subscriber *entity.Subscriber) {
	channels, err := h.service.ListChannels(ctx, subscriber)
	if err != nil {
		h.logger.Error("channel listing failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
		h.reply(ctx, chatID, replyError)
		return
	}
	if len(channels) == 0 {
		h.reply(ctx, chatID, replyEmpty)
		return
	}

	var b strings.Builder
	b.WriteString("Your channels:\n")
	for _, channel := range channels {
		fmt.Fprintf(&b, "\n▶ <b>%s</b>\n%s\n/unsubscribe %d", channel.Name, channel.URL, channel.ID)
	}
	h.reply(ctx, chatID, b.String())
}

func (h *Handler) handleStats(ctx context.Context, chatID int64) {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.Error("stats failed", slog.String("error", err.Error()))
		h.reply(ctx, chatID, replyError)
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf(
		"Subscribers: <b>%d</b>\nChannels: <b>%d</b>\nContent found today: <b>%d</b>",
		stats.Subscribers, stats.Channels, stats.ContentToday))
}

func (h *Handler) handleUsers(ctx context.Context, chatID int64) {
	subscribers, err := h.service.ListSubscribers(ctx, 0, usersPageSize)
	if err != nil {
		h.logger.Error("subscriber listing failed", slog.String("error", err.Error()))
		h.reply(ctx, chatID, replyError)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subscribers (%d shown):\n", len(subscribers))
	for _, s := range subscribers {
		fmt.Fprintf(&b, "\n%d @%s [%s]", s.TelegramID, s.Username, s.Status)
	}
	h.reply(ctx, chatID, b.String())
}

// requireAdmin runs fn only for configured admin chats; everyone else gets
// the unknown-command reply so the command stays invisible.
func (h *Handler) requireAdmin(ctx context.Context, chatID int64, fn func(context.Context, int64)) {
	if _, ok := h.admins[chatID]; !ok {
		h.reply(ctx, chatID, replyUnknown)
		return
	}
	fn(ctx, chatID)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if _, err := h.messenger.Send(ctx, chatID, text); err != nil {
		h.logger.Warn("reply failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
	}
}

// isYouTubeURL accepts the hosts the scraper can resolve.
func isYouTubeURL(text string) bool {
	for _, prefix := range []string{
		"https://www.youtube.com/",
		"https://youtube.com/",
		"https://m.youtube.com/",
		"https://youtu.be/",
		"http://www.youtube.com/",
	} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}
