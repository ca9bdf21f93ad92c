package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/credibility-engine/backend/internal/config"
	"github.com/DeafMist/credibility-engine/backend/internal/feed"
	"github.com/DeafMist/credibility-engine/backend/internal/logger"
)

const collectTimeout = 2 * time.Minute

type collector interface {
	RunOnce(ctx context.Context) (int, error)
}

func main() {
	log := logger.New("feeder")
	cfg, err := config.LoadFeeder()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	var bodies feed.BodyFetcher
	if cfg.FetchBody {
		bodies = feed.NewReadability(cfg.FetchTimeout)
	}

	source := feed.NewGNews(cfg.GNewsAPIKey, cfg.GNewsURL, &http.Client{Timeout: cfg.FetchTimeout})
	c := feed.NewCollector(source, bodies, feed.NewPublisher(writer), cfg.Topics, cfg.ArticlesPerTopic, log)

	scheduler := cron.New(
		cron.WithLogger(logger.Cron(log)),
		cron.WithChain(cron.SkipIfStillRunning(logger.Cron(log))),
	)
	if _, err := scheduler.AddFunc(cfg.Schedule, func() { collect(ctx, log, c) }); err != nil {
		log.Error("schedule feed", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("feeder started",
		slog.String("topic", cfg.KafkaTopic),
		slog.Any("feed_topics", cfg.Topics),
		slog.String("schedule", cfg.Schedule),
		slog.Bool("fetch_body", cfg.FetchBody),
	)

	collect(ctx, log, c)
	scheduler.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")
	<-scheduler.Stop().Done()
}

func collect(ctx context.Context, log *slog.Logger, c collector) int {
	runCtx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	n, err := c.RunOnce(runCtx)
	if err != nil {
		log.Warn("feed run failed (will retry on next tick)", slog.Any("err", err))
		return 0
	}
	return n
}
