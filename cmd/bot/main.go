// Command bot runs the YouTube notification Telegram bot: the update loop
// for user commands, the periodic channel poller and the operational
// endpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	handler "tubenotify/internal/handler/telegram"
	"tubenotify/internal/infra/adapter/persistence/postgres"
	"tubenotify/internal/infra/db"
	"tubenotify/internal/infra/fetcher"
	"tubenotify/internal/infra/telegram"
	"tubenotify/internal/infra/worker"
	"tubenotify/internal/observability/logging"
	"tubenotify/internal/usecase/detect"
	"tubenotify/internal/usecase/notify"
	"tubenotify/internal/usecase/poll"
	"tubenotify/internal/usecase/subscription"
	"tubenotify/pkg/config"
	"tubenotify/pkg/ratelimit"
)

// commandRate throttles bot commands per chat.
const (
	commandRate  = rate.Limit(1)
	commandBurst = 3
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Error("TELEGRAM_BOT_TOKEN not set")
		os.Exit(1)
	}

	fileCfg, err := config.LoadFile(config.GetEnvString("CONFIG_FILE", ""))
	if err != nil {
		logger.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	workerCfg := worker.ConfigFromEnv()

	database := db.Open()
	defer database.Close()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// token buckets for outbound traffic
	registry := ratelimit.NewRegistry(prometheus.DefaultRegisterer)
	for _, b := range fileCfg.Buckets {
		registry.Add(ratelimit.NewBucket(b.Name, b.Rate, b.Capacity, nil))
	}
	registry.StartAll(ctx)
	defer registry.StopAll()

	fetchCfg := fetcher.ConfigFromEnv()
	youtubeBucket, err := registry.Group(fetchCfg.BucketName)
	if err != nil {
		logger.Error("bucket lookup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	telegramBucket, err := registry.Group("Telegram")
	if err != nil {
		logger.Error("bucket lookup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// persistence
	channelRepo := postgres.NewChannelRepo(database)
	subscriberRepo := postgres.NewSubscriberRepo(database)
	subscriptionRepo := postgres.NewSubscriptionRepo(database)
	contentRepo := postgres.NewContentRepo(database)
	pendingRepo := postgres.NewPendingMessageRepo(database)

	// telegram
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("telegram connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("telegram connected", slog.String("account", api.Self.UserName))
	messenger := telegram.NewBotMessenger(api, logger)

	// scrape and notify pipeline
	pageFetcher := fetcher.New(fetchCfg, &http.Client{Timeout: fetchCfg.Timeout}, youtubeBucket, logger)
	rssFetcher := fetcher.NewRSSFetcher(logger)
	detector := detect.NewDetector(contentRepo)
	cache := notify.NewPendingCache()
	dispatcher := notify.NewDispatcher(messenger, subscriberRepo, pendingRepo, cache,
		telegramBucket, fileCfg.AdminChatIDs, logger)

	subscriptionService := subscription.NewService(subscriberRepo, channelRepo,
		subscriptionRepo, contentRepo, pageFetcher, logger)

	poller := poll.NewPoller(channelRepo, pageFetcher, rssFetcher, detector,
		dispatcher, poll.ConfigFromEnv(), logger)

	// operational surfaces
	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.String("error", err.Error()))
		}
	}()
	startMetricsServer(ctx, workerCfg.MetricsPort, logger)

	digest, err := worker.NewDigest(workerCfg, subscriptionService, dispatcher, logger)
	if err != nil {
		logger.Error("digest setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	digest.Start()
	defer digest.Stop()

	// command loop
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 60
	updates := api.GetUpdatesChan(updateCfg)

	commandHandler := handler.NewHandler(subscriptionService, messenger,
		handler.NewChatThrottle(commandRate, commandBurst), fileCfg.AdminChatIDs, logger)
	go commandHandler.Run(ctx, updates)

	poller.Start(ctx)
	healthServer.SetReady(true)
	dispatcher.NotifyAdmins(ctx, "🚀 Bot started")
	logger.Info("bot started")

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetReady(false)

	// shutdown context survives the cancelled run context
	shutdownCtx := context.Background()
	dispatcher.NotifyAdmins(shutdownCtx, "🛑 Bot stopping")

	api.StopReceivingUpdates()
	poller.Stop()
	if err := dispatcher.PersistCache(shutdownCtx); err != nil {
		logger.Error("pending persistence failed", slog.String("error", err.Error()))
	}
	logger.Info("bot stopped")
}
