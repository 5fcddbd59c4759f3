package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

type SubscriptionRepo struct{ db *sql.DB }

func NewSubscriptionRepo(db *sql.DB) repository.SubscriptionRepository {
	return &SubscriptionRepo{db: db}
}

func (repo *SubscriptionRepo) Create(ctx context.Context, subscriberID, channelID int64) error {
	const query = `
INSERT INTO subscriptions (subscriber_id, channel_id)
VALUES ($1, $2)`
	_, err := repo.db.ExecContext(ctx, query, subscriberID, channelID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", entity.ErrDuplicate)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *SubscriptionRepo) Delete(ctx context.Context, subscriberID, channelID int64) error {
	const query = `
DELETE FROM subscriptions
WHERE subscriber_id = $1 AND channel_id = $2`
	_, err := repo.db.ExecContext(ctx, query, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (repo *SubscriptionRepo) CountBySubscriber(ctx context.Context, subscriberID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`
	var n int
	if err := repo.db.QueryRowContext(ctx, query, subscriberID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountBySubscriber: %w", err)
	}
	return n, nil
}

func (repo *SubscriptionRepo) ListChannels(ctx context.Context, subscriberID int64) ([]*entity.Channel, error) {
	const query = `
SELECT c.id, c.name, c.url, c.canonical_url, c.created_at
FROM channels AS c
JOIN subscriptions AS sub ON sub.channel_id = c.id
WHERE sub.subscriber_id = $1
ORDER BY c.id ASC`
	rows, err := repo.db.QueryContext(ctx, query, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []*entity.Channel
	for rows.Next() {
		var channel entity.Channel
		if err := rows.Scan(
			&channel.ID, &channel.Name, &channel.URL,
			&channel.CanonicalURL, &channel.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListChannels: %w", err)
		}
		channels = append(channels, &channel)
	}
	return channels, rows.Err()
}
