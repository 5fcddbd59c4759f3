// Package notify delivers new-content messages to subscribers and keeps
// undeliverable ones until the next poll cycle.
package notify

import (
	"sync"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/observability/metrics"
)

// PendingCache buffers messages that failed with a transient error. It is
// shared by every dispatcher goroutine, so all access goes through the
// mutex; Drain swaps the whole slice out so a concurrent Add never lands in
// a batch that is already being persisted.
type PendingCache struct {
	mu      sync.Mutex
	entries []*entity.PendingMessage
}

// NewPendingCache creates an empty cache.
func NewPendingCache() *PendingCache {
	return &PendingCache{}
}

// Add queues one message for redelivery.
func (c *PendingCache) Add(chatID int64, text string) {
	c.mu.Lock()
	c.entries = append(c.entries, &entity.PendingMessage{ChatID: chatID, Text: text})
	c.mu.Unlock()
	metrics.PendingMessagesGauge.Inc()
}

// Drain atomically removes and returns everything queued so far.
func (c *PendingCache) Drain() []*entity.PendingMessage {
	c.mu.Lock()
	entries := c.entries
	c.entries = nil
	c.mu.Unlock()
	metrics.PendingMessagesGauge.Sub(float64(len(entries)))
	return entries
}

// Len returns the number of queued messages.
func (c *PendingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
