// Package postgres implements the repository interfaces on PostgreSQL via
// database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

func (repo *ChannelRepo) GetByURL(ctx context.Context, url string) (*entity.Channel, error) {
	const query = `
SELECT id, name, url, canonical_url, created_at
FROM channels
WHERE url = $1 OR canonical_url = $1
LIMIT 1`
	var channel entity.Channel
	err := repo.db.QueryRowContext(ctx, query, url).Scan(
		&channel.ID, &channel.Name, &channel.URL, &channel.CanonicalURL, &channel.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return &channel, nil
}

func (repo *ChannelRepo) Create(ctx context.Context, channel *entity.Channel) error {
	const query = `
INSERT INTO channels (name, url, canonical_url)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		channel.Name, channel.URL, channel.CanonicalURL,
	).Scan(&channel.ID, &channel.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", entity.ErrDuplicate)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ChannelRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

// ListWithActiveSubscribers pages through channels joined with the Telegram
// chat IDs of their active subscribers. Channels without active subscribers
// are still returned (empty ChatIDs) so their content history keeps up to
// date while nobody is listening.
func (repo *ChannelRepo) ListWithActiveSubscribers(ctx context.Context, offset, limit int) ([]*repository.ChannelSubscribers, bool, error) {
	const query = `
SELECT c.id, c.name, c.url, c.canonical_url, c.created_at, s.telegram_id
FROM (
    SELECT id, name, url, canonical_url, created_at
    FROM channels
    ORDER BY id ASC
    OFFSET $1 LIMIT $2
) AS c
LEFT JOIN subscriptions AS sub ON sub.channel_id = c.id
LEFT JOIN subscribers  AS s   ON s.id = sub.subscriber_id AND s.status = 'active'
ORDER BY c.id ASC`
	// One extra channel decides hasMore without a second COUNT query.
	rows, err := repo.db.QueryContext(ctx, query, offset, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("ListWithActiveSubscribers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		page    []*repository.ChannelSubscribers
		current *repository.ChannelSubscribers
	)
	for rows.Next() {
		var (
			channel entity.Channel
			chatID  sql.NullInt64
		)
		if err := rows.Scan(
			&channel.ID, &channel.Name, &channel.URL, &channel.CanonicalURL,
			&channel.CreatedAt, &chatID,
		); err != nil {
			return nil, false, fmt.Errorf("ListWithActiveSubscribers: %w", err)
		}

		if current == nil || current.Channel.ID != channel.ID {
			current = &repository.ChannelSubscribers{Channel: &channel}
			page = append(page, current)
		}
		if chatID.Valid {
			current.ChatIDs = append(current.ChatIDs, chatID.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("ListWithActiveSubscribers: %w", err)
	}

	hasMore := false
	if len(page) > limit {
		hasMore = true
		page = page[:limit]
	}
	return page, hasMore, nil
}
