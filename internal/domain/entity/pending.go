package entity

import "time"

// PendingMessage is a notification that failed to send due to a transient
// network error. It is persisted so the next poll cycle (or the next process
// lifetime) can retry it; a repeated failure re-queues it.
type PendingMessage struct {
	ID        int64
	ChatID    int64
	Text      string
	CreatedAt time.Time
}
