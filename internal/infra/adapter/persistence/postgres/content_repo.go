package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

type ContentRepo struct{ db *sql.DB }

func NewContentRepo(db *sql.DB) repository.ContentRepository {
	return &ContentRepo{db: db}
}

func (repo *ContentRepo) ListURLs(ctx context.Context, channelID int64, kind entity.ContentKind) ([]string, error) {
	const query = `
SELECT url
FROM content_items
WHERE channel_id = $1 AND kind = $2`
	rows, err := repo.db.QueryContext(ctx, query, channelID, kind)
	if err != nil {
		return nil, fmt.Errorf("ListURLs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ListURLs: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// CreateBatch inserts the discovered items in a single transaction.
// ON CONFLICT DO NOTHING keeps the insert idempotent when a previous cycle
// recorded some of the URLs before failing.
func (repo *ContentRepo) CreateBatch(ctx context.Context, items []*entity.ContentItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO content_items (channel_id, kind, url)
VALUES ($1, $2, $3)
ON CONFLICT (channel_id, url) DO NOTHING`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.ChannelID, item.Kind, item.URL); err != nil {
			return fmt.Errorf("CreateBatch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	return nil
}

func (repo *ContentRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM content_items WHERE created_at >= $1`
	var n int64
	if err := repo.db.QueryRowContext(ctx, query, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountSince: %w", err)
	}
	return n, nil
}
