// Package poll drives the periodic scrape of every subscribed channel and
// hands discovered content to the notification dispatcher.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/observability/metrics"
	"tubenotify/internal/repository"
)

// maxConcurrentChannels bounds how many channels of one page are scraped at
// the same time.
const maxConcurrentChannels = 5

// PageFetcher scrapes a channel's listing pages for content paths.
type PageFetcher interface {
	ContentURLs(ctx context.Context, channel *entity.Channel, kind entity.ContentKind) []string
}

// FeedFetcher reads a channel's RSS feed. It backs up the HTML scraper when
// the listing page yields nothing.
type FeedFetcher interface {
	VideoPaths(ctx context.Context, channel *entity.Channel) []string
}

// Detector separates freshly scraped paths from ones already recorded.
type Detector interface {
	DetectNew(ctx context.Context, channelID int64, kind entity.ContentKind, scraped []string) ([]*entity.ContentItem, error)
}

// Dispatcher delivers messages and manages the pending-message queue.
type Dispatcher interface {
	NotifyChannel(ctx context.Context, channel *entity.Channel, chatIDs []int64, paths []string)
	PersistCache(ctx context.Context) error
	RedeliverPending(ctx context.Context) error
}

// Poller runs the scrape-detect-notify cycle on a fixed interval until
// stopped.
type Poller struct {
	channels   repository.ChannelRepository
	fetcher    PageFetcher
	feeds      FeedFetcher
	detector   Detector
	dispatcher Dispatcher
	cfg        Config
	logger     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a Poller. feeds may be nil to disable the RSS fallback.
func NewPoller(
	channels repository.ChannelRepository,
	fetcher PageFetcher,
	feeds FeedFetcher,
	detector Detector,
	dispatcher Dispatcher,
	cfg Config,
	logger *slog.Logger,
) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	return &Poller{
		channels:   channels,
		fetcher:    fetcher,
		feeds:      feeds,
		detector:   detector,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop cancels the loop and waits for the current cycle to finish.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	for {
		delay := p.cfg.Interval
		if err := p.runCycleSafe(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("poll cycle failed", slog.String("error", err.Error()))
			delay = p.cfg.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runCycleSafe turns a panicking cycle into an error so one bad page never
// kills the loop.
func (p *Poller) runCycleSafe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panic: %v", r)
		}
	}()
	return p.RunCycle(ctx)
}

// RunCycle performs one full pass: redeliver queued messages, page through
// every channel that has active subscribers, then persist whatever could not
// be delivered this time.
func (p *Poller) RunCycle(ctx context.Context) error {
	start := time.Now()
	logger := p.logger.With(slog.String("cycle_id", uuid.NewString()))

	if err := p.dispatcher.RedeliverPending(ctx); err != nil {
		// queued messages stay in the table for the next cycle
		logger.Warn("pending redelivery failed", slog.String("error", err.Error()))
	}

	var polled int
	for offset := 0; ; offset += p.cfg.PageSize {
		page, hasMore, err := p.channels.ListWithActiveSubscribers(ctx, offset, p.cfg.PageSize)
		if err != nil {
			metrics.RecordCycle("error", time.Since(start).Seconds())
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentChannels)
		for _, cs := range page {
			cs := cs
			g.Go(func() error {
				p.pollChannel(gctx, logger, cs)
				return nil
			})
		}
		_ = g.Wait()
		polled += len(page)

		if !hasMore {
			break
		}
	}

	if err := p.dispatcher.PersistCache(ctx); err != nil {
		logger.Warn("pending persistence failed", slog.String("error", err.Error()))
	}

	elapsed := time.Since(start)
	metrics.RecordCycle("ok", elapsed.Seconds())
	logger.Info("poll cycle finished",
		slog.Int("channels", polled),
		slog.Duration("elapsed", elapsed))
	return nil
}

// pollChannel scrapes both listing pages concurrently, detects new items and
// notifies the channel's subscribers with one combined message.
func (p *Poller) pollChannel(ctx context.Context, logger *slog.Logger, cs *repository.ChannelSubscribers) {
	var (
		mu       sync.Mutex
		newPaths []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range entity.Kinds {
		kind := kind
		g.Go(func() error {
			paths := p.fetcher.ContentURLs(gctx, cs.Channel, kind)
			if len(paths) == 0 && kind == entity.KindVideo && p.feeds != nil {
				paths = p.feeds.VideoPaths(gctx, cs.Channel)
			}

			items, err := p.detector.DetectNew(gctx, cs.Channel.ID, kind, paths)
			if err != nil {
				return err
			}

			mu.Lock()
			for _, item := range items {
				newPaths = append(newPaths, item.URL)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.ChannelsPolledTotal.WithLabelValues("error").Inc()
		logger.Warn("channel poll failed",
			slog.String("channel", cs.Channel.Name),
			slog.String("error", err.Error()))
		return
	}

	metrics.ChannelsPolledTotal.WithLabelValues("ok").Inc()
	if len(newPaths) == 0 {
		return
	}

	logger.Info("new content found",
		slog.String("channel", cs.Channel.Name),
		slog.Int("count", len(newPaths)))
	p.dispatcher.NotifyChannel(ctx, cs.Channel, cs.ChatIDs, newPaths)
}
