package repository

import (
	"context"

	"tubenotify/internal/domain/entity"
)

type SubscriptionRepository interface {
	// Create inserts the subscription link. Returns entity.ErrDuplicate when
	// the (subscriber, channel) pair already exists; callers treat that as an
	// idempotent no-op.
	Create(ctx context.Context, subscriberID, channelID int64) error
	Delete(ctx context.Context, subscriberID, channelID int64) error
	CountBySubscriber(ctx context.Context, subscriberID int64) (int, error)
	ListChannels(ctx context.Context, subscriberID int64) ([]*entity.Channel, error)
}
