package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

type SubscriberRepo struct{ db *sql.DB }

func NewSubscriberRepo(db *sql.DB) repository.SubscriberRepository {
	return &SubscriberRepo{db: db}
}

func (repo *SubscriberRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*entity.Subscriber, error) {
	const query = `
SELECT id, telegram_id, first_name, username, status, subs_limit, created_at
FROM subscribers
WHERE telegram_id = $1
LIMIT 1`
	var subscriber entity.Subscriber
	err := repo.db.QueryRowContext(ctx, query, telegramID).Scan(
		&subscriber.ID, &subscriber.TelegramID, &subscriber.FirstName,
		&subscriber.Username, &subscriber.Status, &subscriber.SubsLimit,
		&subscriber.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByTelegramID: %w", err)
	}
	return &subscriber, nil
}

func (repo *SubscriberRepo) Create(ctx context.Context, subscriber *entity.Subscriber) error {
	if subscriber.Status == "" {
		subscriber.Status = entity.StatusActive
	}
	if subscriber.SubsLimit == 0 {
		subscriber.SubsLimit = entity.DefaultSubsLimit
	}

	const query = `
INSERT INTO subscribers (telegram_id, first_name, username, status, subs_limit)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		subscriber.TelegramID, subscriber.FirstName, subscriber.Username,
		subscriber.Status, subscriber.SubsLimit,
	).Scan(&subscriber.ID, &subscriber.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", entity.ErrDuplicate)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *SubscriberRepo) UpdateStatus(ctx context.Context, id int64, status entity.Status) error {
	const query = `UPDATE subscribers SET status = $1 WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateStatus: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *SubscriberRepo) List(ctx context.Context, offset, limit int) ([]*entity.Subscriber, error) {
	const query = `
SELECT id, telegram_id, first_name, username, status, subs_limit, created_at
FROM subscribers
ORDER BY id ASC
OFFSET $1 LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subscribers := make([]*entity.Subscriber, 0, limit)
	for rows.Next() {
		var subscriber entity.Subscriber
		if err := rows.Scan(
			&subscriber.ID, &subscriber.TelegramID, &subscriber.FirstName,
			&subscriber.Username, &subscriber.Status, &subscriber.SubsLimit,
			&subscriber.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		subscribers = append(subscribers, &subscriber)
	}
	return subscribers, rows.Err()
}

func (repo *SubscriberRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}
