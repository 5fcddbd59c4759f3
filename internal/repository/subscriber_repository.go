package repository

import (
	"context"

	"tubenotify/internal/domain/entity"
)

type SubscriberRepository interface {
	// GetByTelegramID returns (nil, nil) when the subscriber is unknown.
	GetByTelegramID(ctx context.Context, telegramID int64) (*entity.Subscriber, error)
	Create(ctx context.Context, subscriber *entity.Subscriber) error
	UpdateStatus(ctx context.Context, id int64, status entity.Status) error
	List(ctx context.Context, offset, limit int) ([]*entity.Subscriber, error)
	Count(ctx context.Context) (int64, error)
}
