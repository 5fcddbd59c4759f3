package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock makes Sleep return immediately so Do loops spin without waiting.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps++
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func TestBucket_ConsumeNeverBlocks(t *testing.T) {
	b := NewBucket("test", 1, 2, &fakeClock{})

	assert.True(t, b.Consume(1))
	assert.True(t, b.Consume(1))
	// empty bucket: probe fails instead of waiting
	assert.False(t, b.Consume(1))
	assert.Equal(t, int64(0), b.Tokens())
}

func TestBucket_ConsumeIsAtomic(t *testing.T) {
	b := NewBucket("test", 1, 100, &fakeClock{})

	var wg sync.WaitGroup
	granted := make(chan struct{}, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Consume(1) {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	var n int
	for range granted {
		n++
	}
	// exactly the initial capacity may be granted, never more
	assert.Equal(t, 100, n)
	assert.Equal(t, int64(0), b.Tokens())
}

func TestBucket_ReplenishCapsAtCapacity(t *testing.T) {
	b := NewBucket("test", 100, 3, SystemClock{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop()

	// already full: ticks must not grow the bucket past capacity
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, b.Tokens(), int64(3))
}

func TestBucket_StopHaltsReplenishment(t *testing.T) {
	b := NewBucket("test", 1000, 5, SystemClock{})

	ctx := context.Background()
	b.Start(ctx)
	require.True(t, b.Started())
	b.Stop()
	require.False(t, b.Started())

	require.True(t, b.Consume(5))
	time.Sleep(20 * time.Millisecond)
	// no refill after Stop
	assert.Equal(t, int64(0), b.Tokens())
}

func TestBucket_DoRunsWhenTokenAvailable(t *testing.T) {
	b := NewBucket("test", 1, 1, &fakeClock{})

	ran := false
	ok, err := b.Do(context.Background(), 1, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ran)
}

func TestBucket_DoFallsThroughWhenStopped(t *testing.T) {
	clock := &fakeClock{}
	b := NewBucket("test", 1, 1, clock)
	require.True(t, b.Consume(1)) // drain

	// never started, no tokens: Do must give up instead of spinning
	ok, err := b.Do(context.Background(), 1, func() error {
		t.Fatal("fn must not run")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBucket_DoStopsOnContextCancel(t *testing.T) {
	clock := &fakeClock{}
	b := NewBucket("test", 1, 1, clock)
	require.True(t, b.Consume(1))
	b.Start(context.Background())
	defer b.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := b.Do(ctx, 1, func() error { return nil })
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBucket_ContextCancelHaltsBucket(t *testing.T) {
	b := NewBucket("test", 1, 1, &fakeClock{})
	require.True(t, b.Consume(1)) // drain

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return !b.Started() },
		time.Second, time.Millisecond)

	// drained and no longer replenishing: Do with a live context must fall
	// through instead of spinning
	ok, err := b.Do(context.Background(), 1, func() error {
		t.Fatal("fn must not run")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBucket_StartTwiceIsNoop(t *testing.T) {
	b := NewBucket("test", 1, 1, SystemClock{})
	ctx := context.Background()
	b.Start(ctx)
	b.Start(ctx)
	b.Stop()
	b.Stop()
	assert.False(t, b.Started())
}
