package entity

import "time"

// Status is the delivery state of a subscriber.
type Status string

const (
	// StatusActive receives notifications.
	StatusActive Status = "active"
	// StatusBlocked is set when Telegram rejects a send because the user
	// blocked the bot or removed the chat. Reset to active on /start.
	StatusBlocked Status = "blocked"
	// StatusBanned is set by an administrator.
	StatusBanned Status = "banned"
	// StatusDeleted marks an account Telegram reported as deleted.
	StatusDeleted Status = "deleted"
)

// DefaultSubsLimit is the subscription cap applied to new subscribers.
const DefaultSubsLimit = 6

// Subscriber is a Telegram end-user known to the bot.
type Subscriber struct {
	ID         int64
	TelegramID int64
	FirstName  string
	Username   string
	Status     Status
	SubsLimit  int
	CreatedAt  time.Time
}

// CanReceive reports whether notification delivery should be attempted.
func (s *Subscriber) CanReceive() bool {
	return s.Status == StatusActive
}
