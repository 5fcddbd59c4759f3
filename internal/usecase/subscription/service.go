// Package subscription implements the user-facing operations of the bot:
// registering subscribers, subscribing them to channels and reporting stats.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

// ErrSubscriptionLimit is returned when a subscriber tries to follow more
// channels than their limit allows.
var ErrSubscriptionLimit = errors.New("subscription limit reached")

// ChannelResolver turns a user-submitted URL into a Channel entity plus its
// current content listing. Backed by the page fetcher in production.
type ChannelResolver interface {
	ResolveChannelPage(ctx context.Context, rawURL string) (string, error)
	BuildChannel(page, fromURL string) (*entity.Channel, error)
	ContentURLs(ctx context.Context, channel *entity.Channel, kind entity.ContentKind) []string
}

// Service wires the subscriber, channel and subscription repositories
// together behind the bot's command surface.
type Service struct {
	subscribers   repository.SubscriberRepository
	channels      repository.ChannelRepository
	subscriptions repository.SubscriptionRepository
	contents      repository.ContentRepository
	resolver      ChannelResolver
	logger        *slog.Logger
}

func NewService(
	subscribers repository.SubscriberRepository,
	channels repository.ChannelRepository,
	subscriptions repository.SubscriptionRepository,
	contents repository.ContentRepository,
	resolver ChannelResolver,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		subscribers:   subscribers,
		channels:      channels,
		subscriptions: subscriptions,
		contents:      contents,
		resolver:      resolver,
		logger:        logger,
	}
}

// RegisterSubscriber creates the subscriber on first contact or reactivates a
// previously blocked one. Banned subscribers stay banned.
func (s *Service) RegisterSubscriber(ctx context.Context, telegramID int64, firstName, username string) (*entity.Subscriber, error) {
	subscriber, err := s.subscribers.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("RegisterSubscriber: %w", err)
	}

	if subscriber == nil {
		subscriber = &entity.Subscriber{
			TelegramID: telegramID,
			FirstName:  firstName,
			Username:   username,
		}
		if err := s.subscribers.Create(ctx, subscriber); err != nil {
			return nil, fmt.Errorf("RegisterSubscriber: %w", err)
		}
		s.logger.Info("subscriber registered",
			slog.Int64("telegram_id", telegramID),
			slog.String("username", username))
		return subscriber, nil
	}

	if subscriber.Status == entity.StatusBlocked || subscriber.Status == entity.StatusDeleted {
		if err := s.subscribers.UpdateStatus(ctx, subscriber.ID, entity.StatusActive); err != nil {
			return nil, fmt.Errorf("RegisterSubscriber: %w", err)
		}
		subscriber.Status = entity.StatusActive
		s.logger.Info("subscriber reactivated", slog.Int64("telegram_id", telegramID))
	}
	return subscriber, nil
}

// Subscribe links the subscriber to the channel behind rawURL, creating the
// channel record on first sight. Subscribing twice to the same channel is a
// no-op.
func (s *Service) Subscribe(ctx context.Context, subscriber *entity.Subscriber, rawURL string) (*entity.Channel, error) {
	if err := entity.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("Subscribe: %w", err)
	}

	count, err := s.subscriptions.CountBySubscriber(ctx, subscriber.ID)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: %w", err)
	}
	if count >= subscriber.SubsLimit {
		return nil, ErrSubscriptionLimit
	}

	channel, err := s.channels.GetByURL(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: %w", err)
	}
	if channel == nil {
		channel, err = s.resolveAndCreate(ctx, rawURL)
		if err != nil {
			return nil, err
		}
	}

	if err := s.subscriptions.Create(ctx, subscriber.ID, channel.ID); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return channel, nil
		}
		return nil, fmt.Errorf("Subscribe: %w", err)
	}

	s.logger.Info("subscription created",
		slog.Int64("telegram_id", subscriber.TelegramID),
		slog.String("channel", channel.Name))
	return channel, nil
}

// resolveAndCreate scrapes the channel page, stores the channel and seeds its
// current content listing so existing videos are never announced as new.
func (s *Service) resolveAndCreate(ctx context.Context, rawURL string) (*entity.Channel, error) {
	page, err := s.resolver.ResolveChannelPage(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: resolve %s: %w", rawURL, err)
	}
	channel, err := s.resolver.BuildChannel(page, rawURL)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: %w", err)
	}

	// the submitted URL may differ from the canonical one the page reports,
	// so check again before inserting
	if existing, err := s.channels.GetByURL(ctx, channel.CanonicalURL); err != nil {
		return nil, fmt.Errorf("Subscribe: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	channel.URL = rawURL
	if err := s.channels.Create(ctx, channel); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			if existing, getErr := s.channels.GetByURL(ctx, channel.CanonicalURL); getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("Subscribe: %w", err)
	}
	s.logger.Info("channel created", slog.String("channel", channel.Name))

	s.seedContent(ctx, channel)
	return channel, nil
}

// seedContent records whatever the listing pages show right now. Failures are
// logged only; the poller will pick the content up on the next cycle and the
// subscriber simply gets one catch-up message.
func (s *Service) seedContent(ctx context.Context, channel *entity.Channel) {
	for _, kind := range entity.Kinds {
		paths := s.resolver.ContentURLs(ctx, channel, kind)
		if len(paths) == 0 {
			continue
		}
		items := make([]*entity.ContentItem, 0, len(paths))
		for _, path := range paths {
			items = append(items, &entity.ContentItem{
				ChannelID: channel.ID,
				URL:       path,
				Kind:      kind,
			})
		}
		if err := s.contents.CreateBatch(ctx, items); err != nil {
			s.logger.Warn("content seeding failed",
				slog.String("channel", channel.Name),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
		}
	}
}

// Unsubscribe removes the subscription link. Unknown links return
// entity.ErrNotFound.
func (s *Service) Unsubscribe(ctx context.Context, subscriber *entity.Subscriber, channelID int64) error {
	if err := s.subscriptions.Delete(ctx, subscriber.ID, channelID); err != nil {
		return fmt.Errorf("Unsubscribe: %w", err)
	}
	return nil
}

// ListChannels returns the channels the subscriber follows.
func (s *Service) ListChannels(ctx context.Context, subscriber *entity.Subscriber) ([]*entity.Channel, error) {
	channels, err := s.subscriptions.ListChannels(ctx, subscriber.ID)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	return channels, nil
}

// Stats is the aggregate snapshot behind the /info admin command.
type Stats struct {
	Subscribers  int64
	Channels     int64
	ContentToday int64
}

// Stats gathers the counters shown to administrators.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	subscribers, err := s.subscribers.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	channels, err := s.channels.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	midnight := time.Now().Truncate(24 * time.Hour)
	content, err := s.contents.CountSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	return &Stats{Subscribers: subscribers, Channels: channels, ContentToday: content}, nil
}

// ListSubscribers returns one page of subscribers for the /users admin
// command.
func (s *Service) ListSubscribers(ctx context.Context, offset, limit int) ([]*entity.Subscriber, error) {
	subscribers, err := s.subscribers.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("ListSubscribers: %w", err)
	}
	return subscribers, nil
}
