package entity

import "time"

// Subscription links a subscriber to a channel. The (SubscriberID, ChannelID)
// pair is unique; duplicate creation attempts are treated as already
// subscribed, not as errors.
type Subscription struct {
	ID           int64
	SubscriberID int64
	ChannelID    int64
	CreatedAt    time.Time
}
