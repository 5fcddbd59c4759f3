// Package repository defines the persistence interfaces consumed by the use
// case layer. Concrete implementations live under
// internal/infra/adapter/persistence.
package repository

import (
	"context"

	"tubenotify/internal/domain/entity"
)

// ChannelSubscribers pairs a channel with the chat IDs of its active
// subscribers. It is the unit the poller works on: one row group per channel
// from the channels/subscriptions/subscribers join.
type ChannelSubscribers struct {
	Channel *entity.Channel
	ChatIDs []int64
}

type ChannelRepository interface {
	// GetByURL looks a channel up by either its original or canonical URL.
	// Returns (nil, nil) when no channel matches.
	GetByURL(ctx context.Context, url string) (*entity.Channel, error)
	Create(ctx context.Context, channel *entity.Channel) error
	Count(ctx context.Context) (int64, error)
	// ListWithActiveSubscribers returns one page of channels joined with the
	// Telegram chat IDs of their active subscribers, ordered by channel ID.
	// hasMore reports whether another page exists after this one.
	ListWithActiveSubscribers(ctx context.Context, offset, limit int) (page []*ChannelSubscribers, hasMore bool, err error)
}
