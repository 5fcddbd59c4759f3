package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

type PendingMessageRepo struct{ db *sql.DB }

func NewPendingMessageRepo(db *sql.DB) repository.PendingMessageRepository {
	return &PendingMessageRepo{db: db}
}

func (repo *PendingMessageRepo) Create(ctx context.Context, messages []*entity.PendingMessage) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO pending_messages (chat_id, text)
VALUES ($1, $2)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, message := range messages {
		if _, err := stmt.ExecContext(ctx, message.ChatID, message.Text); err != nil {
			return fmt.Errorf("Create: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *PendingMessageRepo) ListAll(ctx context.Context) ([]*entity.PendingMessage, error) {
	const query = `
SELECT id, chat_id, text, created_at
FROM pending_messages
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*entity.PendingMessage
	for rows.Next() {
		var message entity.PendingMessage
		if err := rows.Scan(&message.ID, &message.ChatID, &message.Text, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAll: %w", err)
		}
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}

func (repo *PendingMessageRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM pending_messages`)
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteAll: %w", err)
	}
	return n, nil
}
