package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/infra/telegram"
	"tubenotify/internal/observability/metrics"
	"tubenotify/internal/repository"
	"tubenotify/pkg/ratelimit"
)

// youtubeBaseURL prefixes the relative watch paths stored for each channel.
const youtubeBaseURL = "https://www.youtube.com"

// maxConcurrentSends bounds the fan-out per message batch.
const maxConcurrentSends = 10

// Dispatcher fans one message out to many chats, classifying failures:
// rejections mark the subscriber blocked, transient failures go to the
// pending cache for the next cycle.
type Dispatcher struct {
	messenger   telegram.Messenger
	subscribers repository.SubscriberRepository
	pending     repository.PendingMessageRepository
	cache       *PendingCache
	bucket      *ratelimit.Bucket
	adminChats  []int64
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher. bucket may be nil in tests to send
// without throttling.
func NewDispatcher(
	messenger telegram.Messenger,
	subscribers repository.SubscriberRepository,
	pending repository.PendingMessageRepository,
	cache *PendingCache,
	bucket *ratelimit.Bucket,
	adminChats []int64,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		messenger:   messenger,
		subscribers: subscribers,
		pending:     pending,
		cache:       cache,
		bucket:      bucket,
		adminChats:  adminChats,
		logger:      logger,
	}
}

// BuildContentMessage renders one channel's batch of new content as a single
// HTML message.
func BuildContentMessage(channel *entity.Channel, paths []string) string {
	lines := make([]string, 0, len(paths))
	for _, path := range paths {
		lines = append(lines, fmt.Sprintf("<b><i>▶ Watch: %s%s</i></b>", youtubeBaseURL, path))
	}
	return fmt.Sprintf("✅ <b><i>~ %s ~\n\nNew content!\n\n%s</i></b>",
		channel.Name, strings.Join(lines, "\n\n"))
}

// NotifyChannel sends the channel's new-content message to every chat ID.
// One chat failing never stops the rest of the fan-out.
func (d *Dispatcher) NotifyChannel(ctx context.Context, channel *entity.Channel, chatIDs []int64, paths []string) {
	if len(paths) == 0 || len(chatIDs) == 0 {
		return
	}
	d.SendToChats(ctx, chatIDs, BuildContentMessage(channel, paths))
}

// SendToChats delivers the same text to every chat, at most
// maxConcurrentSends at a time.
func (d *Dispatcher) SendToChats(ctx context.Context, chatIDs []int64, text string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)

	for _, chatID := range chatIDs {
		chatID := chatID
		g.Go(func() error {
			d.deliver(gctx, chatID, text, true)
			return nil
		})
	}
	_ = g.Wait()
}

// deliver sends one message and handles the failure taxonomy. useCache
// controls whether transient failures are queued for redelivery.
func (d *Dispatcher) deliver(ctx context.Context, chatID int64, text string, useCache bool) {
	send := func() error {
		_, err := d.messenger.Send(ctx, chatID, text)
		return err
	}

	var err error
	if d.bucket != nil {
		ran, doErr := d.bucket.Do(ctx, 1, send)
		if !ran {
			// bucket stopped or context cancelled before the send happened
			if useCache {
				d.cache.Add(chatID, text)
				metrics.NotificationsTotal.WithLabelValues("deferred").Inc()
			}
			return
		}
		err = doErr
	} else {
		err = send()
	}

	if err == nil {
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		d.logger.Debug("message sent", slog.Int64("chat_id", chatID))
		return
	}

	switch {
	case errors.Is(err, telegram.ErrRejected):
		metrics.NotificationsTotal.WithLabelValues("rejected").Inc()
		d.markBlocked(ctx, chatID)
	default:
		metrics.NotificationsTotal.WithLabelValues("deferred").Inc()
		d.logger.Warn("message delivery failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
		if useCache {
			d.cache.Add(chatID, text)
		}
	}
}

// markBlocked flags the subscriber so future cycles skip the chat.
func (d *Dispatcher) markBlocked(ctx context.Context, chatID int64) {
	subscriber, err := d.subscribers.GetByTelegramID(ctx, chatID)
	if err != nil || subscriber == nil {
		d.logger.Warn("blocked subscriber lookup failed",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err))
		return
	}
	if err := d.subscribers.UpdateStatus(ctx, subscriber.ID, entity.StatusBlocked); err != nil {
		d.logger.Warn("blocked status update failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
		return
	}
	d.logger.Info("subscriber marked blocked", slog.Int64("chat_id", chatID))
}

// PersistCache writes the in-memory pending messages to the database so they
// survive a restart. Called on shutdown and after each poll cycle.
func (d *Dispatcher) PersistCache(ctx context.Context) error {
	entries := d.cache.Drain()
	if len(entries) == 0 {
		return nil
	}
	if err := d.pending.Create(ctx, entries); err != nil {
		return fmt.Errorf("persist pending messages: %w", err)
	}
	d.logger.Info("pending messages persisted", slog.Int("count", len(entries)))
	return nil
}

// RedeliverPending empties the durable pending table and retries delivery.
// Messages that fail transiently again land back in the cache.
func (d *Dispatcher) RedeliverPending(ctx context.Context) error {
	entries, err := d.pending.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load pending messages: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	if _, err := d.pending.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear pending messages: %w", err)
	}

	d.logger.Debug("redelivering pending messages", slog.Int("count", len(entries)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			d.deliver(gctx, entry.ChatID, entry.Text, true)
			return nil
		})
	}
	return g.Wait()
}

// NotifyAdmins sends an operational message to every configured admin chat.
// Failures are logged but never queued.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, text string) {
	for _, chatID := range d.adminChats {
		d.deliver(ctx, chatID, text, false)
	}
}
