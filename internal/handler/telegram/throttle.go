package telegram

import (
	"sync"

	"golang.org/x/time/rate"
)

// ChatThrottle keeps one token bucket per chat so a single user flooding the
// bot with commands cannot starve everyone else.
type ChatThrottle struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewChatThrottle creates a throttle allowing r events per second with the
// given burst per chat.
func NewChatThrottle(r rate.Limit, burst int) *ChatThrottle {
	return &ChatThrottle{
		limiters: make(map[int64]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Allow reports whether the chat may issue another command right now.
func (t *ChatThrottle) Allow(chatID int64) bool {
	t.mu.Lock()
	limiter, ok := t.limiters[chatID]
	if !ok {
		limiter = rate.NewLimiter(t.rate, t.burst)
		t.limiters[chatID] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}
