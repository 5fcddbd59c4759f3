package repository

import (
	"context"
	"time"

	"tubenotify/internal/domain/entity"
)

type ContentRepository interface {
	// ListURLs returns every recorded content URL of the given kind for a
	// channel. The result feeds the set difference in the change detector.
	ListURLs(ctx context.Context, channelID int64, kind entity.ContentKind) ([]string, error)
	// CreateBatch inserts discovered items; URLs already present are skipped
	// so re-detection after a partial failure stays idempotent.
	CreateBatch(ctx context.Context, items []*entity.ContentItem) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
