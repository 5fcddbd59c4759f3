// Package ratelimit provides named token buckets shared between the poller
// and the notification dispatcher. Each bucket refills on its own schedule
// while started and hands out tokens without blocking, so callers decide how
// to wait.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock implements Clock with the real time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done, whichever comes first.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Bucket is a token bucket identified by name. Tokens replenish one at a time
// at the configured rate while the bucket is started. A stopped bucket keeps
// its current tokens but never gains new ones, so consumers drain it and then
// fall through their wait loops.
type Bucket struct {
	name     string
	rate     float64 // tokens added per second
	capacity int64

	clock Clock

	mu       sync.Mutex
	tokens   int64
	started  bool
	stop     chan struct{}
	done     chan struct{}
	observer func(granted bool, n int64)
}

// NewBucket builds a bucket that starts full. rate must be positive.
func NewBucket(name string, rate float64, capacity int64, clock Clock) *Bucket {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Bucket{
		name:     name,
		rate:     rate,
		capacity: capacity,
		clock:    clock,
		tokens:   capacity,
	}
}

// Name returns the bucket identifier used for registry lookups and metrics.
func (b *Bucket) Name() string { return b.name }

// Interval returns the time between two replenished tokens.
func (b *Bucket) Interval() time.Duration {
	return time.Duration(float64(time.Second) / b.rate)
}

// Start launches the replenish loop. Calling Start on a running bucket is a
// no-op.
func (b *Bucket) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	stop, done := b.stop, b.done
	b.mu.Unlock()

	go b.replenish(ctx, stop, done)
	slog.Debug("rate limit bucket started",
		slog.String("bucket", b.name),
		slog.Float64("rate", b.rate),
		slog.Int64("capacity", b.capacity))
}

// Stop halts replenishment and waits for the loop to exit. Remaining tokens
// stay consumable.
func (b *Bucket) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	stop, done := b.stop, b.done
	b.mu.Unlock()

	close(stop)
	<-done
	slog.Debug("rate limit bucket stopped", slog.String("bucket", b.name))
}

// Started reports whether the replenish loop is running.
func (b *Bucket) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// setObserver installs a callback reporting every Consume outcome. The
// registry uses it to count granted and rejected probes per bucket.
func (b *Bucket) setObserver(fn func(granted bool, n int64)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = fn
}

// Consume atomically takes n tokens if available. It never blocks.
func (b *Bucket) Consume(n int64) bool {
	b.mu.Lock()
	ok := b.tokens >= n
	if ok {
		b.tokens -= n
	}
	observer := b.observer
	b.mu.Unlock()

	if observer != nil {
		observer(ok, n)
	}
	return ok
}

// Tokens returns the current token count.
func (b *Bucket) Tokens() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Do runs fn once n tokens could be consumed, sleeping one replenish interval
// between attempts. When the bucket is stopped (or ctx is cancelled) before
// tokens become available, Do gives up and returns without running fn; the
// first return value reports whether fn ran.
func (b *Bucket) Do(ctx context.Context, n int64, fn func() error) (bool, error) {
	for {
		if b.Consume(n) {
			return true, fn()
		}
		if !b.Started() {
			return false, nil
		}
		if err := b.clock.Sleep(ctx, b.Interval()); err != nil {
			return false, err
		}
	}
}

func (b *Bucket) replenish(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(b.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			// Cancellation halts replenishment the same way Stop does;
			// without clearing started, waiters in Do would spin forever
			// on a drained bucket.
			b.mu.Lock()
			b.started = false
			b.mu.Unlock()
			return
		case <-ticker.C:
			b.mu.Lock()
			if b.tokens < b.capacity {
				b.tokens++
			}
			b.mu.Unlock()
		}
	}
}
