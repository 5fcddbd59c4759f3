package repository

import (
	"context"

	"tubenotify/internal/domain/entity"
)

// PendingMessageRepository is the durable backstop for the in-memory pending
// message cache: entries survive process restarts and are drained at the top
// of the next poll cycle.
type PendingMessageRepository interface {
	Create(ctx context.Context, messages []*entity.PendingMessage) error
	ListAll(ctx context.Context) ([]*entity.PendingMessage, error)
	DeleteAll(ctx context.Context) (int64, error)
}
