package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tubenotify/internal/usecase/subscription"
)

// digestTimeout bounds one digest run including the Telegram sends.
const digestTimeout = 30 * time.Second

// StatsProvider supplies the aggregate counters shown in the digest.
type StatsProvider interface {
	Stats(ctx context.Context) (*subscription.Stats, error)
}

// AdminNotifier delivers operational messages to the admin chats.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, text string)
}

// Digest sends a daily summary of bot activity to the administrators on a
// cron schedule.
type Digest struct {
	cron     *cron.Cron
	stats    StatsProvider
	notifier AdminNotifier
	logger   *slog.Logger
}

// NewDigest schedules the digest job. It does not start ticking until Start
// is called.
func NewDigest(cfg Config, stats StatsProvider, notifier AdminNotifier, logger *slog.Logger) (*Digest, error) {
	if logger == nil {
		logger = slog.Default()
	}
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("NewDigest: %w", err)
	}

	d := &Digest{
		cron:     cron.New(cron.WithLocation(location)),
		stats:    stats,
		notifier: notifier,
		logger:   logger,
	}
	if _, err := d.cron.AddFunc(cfg.DigestSchedule, d.run); err != nil {
		return nil, fmt.Errorf("NewDigest: %w", err)
	}
	return d, nil
}

// Start begins evaluating the schedule.
func (d *Digest) Start() { d.cron.Start() }

// Stop halts the schedule and waits for a running job to finish.
func (d *Digest) Stop() {
	<-d.cron.Stop().Done()
}

func (d *Digest) run() {
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()

	start := time.Now()
	stats, err := d.stats.Stats(ctx)
	if err != nil {
		DigestRunsTotal.WithLabelValues("failure").Inc()
		d.logger.Error("digest stats failed", slog.String("error", err.Error()))
		return
	}

	d.notifier.NotifyAdmins(ctx, BuildDigestMessage(stats))

	DigestRunsTotal.WithLabelValues("success").Inc()
	DigestDuration.Observe(time.Since(start).Seconds())
	DigestLastSuccess.SetToCurrentTime()
	d.logger.Info("admin digest sent")
}

// BuildDigestMessage renders the daily summary.
func BuildDigestMessage(stats *subscription.Stats) string {
	return fmt.Sprintf(
		"📊 Daily digest\n\nSubscribers: <b>%d</b>\nChannels: <b>%d</b>\nContent found today: <b>%d</b>",
		stats.Subscribers, stats.Channels, stats.ContentToday)
}
