package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/credibility-engine/backend/internal/config"
	"github.com/DeafMist/credibility-engine/backend/internal/elasticsearch"
	"github.com/DeafMist/credibility-engine/backend/internal/logger"
)

const (
	connectAttempts = 10
	maxRetryDelay   = 30 * time.Second
	runTimeout      = 2 * time.Minute
)

type pinger interface {
	Ping(ctx context.Context) error
}

type pruner interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	archive, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	if err := waitForArchive(ctx, log, archive, connectAttempts, 2*time.Second); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("connect to elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to verification archive", slog.String("index", cfg.ElasticsearchIndex))

	// Run immediately on start, then on every interval.
	runOnce(ctx, log, archive, cfg)

	scheduler := cron.New(
		cron.WithLogger(logger.Cron(log)),
		cron.WithChain(cron.SkipIfStillRunning(logger.Cron(log))),
	)
	scheduler.Schedule(cron.Every(cfg.Interval), cron.FuncJob(func() {
		runOnce(ctx, log, archive, cfg)
	}))
	scheduler.Start()

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")
	<-scheduler.Stop().Done()
}

// waitForArchive pings until the cluster answers, doubling the delay up to maxRetryDelay.
func waitForArchive(ctx context.Context, log *slog.Logger, p pinger, attempts int, delay time.Duration) error {
	var lastErr error
	for i := range attempts {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = p.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", attempts),
			slog.Duration("retry_in", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, maxRetryDelay)
	}
	return lastErr
}

func runOnce(ctx context.Context, log *slog.Logger, p pruner, cfg *config.Retention) int64 {
	subCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	deleted, err := p.DeleteOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return 0
	}

	if deleted > 0 {
		log.Info("expired verifications removed", slog.Int64("deleted", deleted))
	} else {
		log.Debug("retention run completed, nothing expired")
	}
	return deleted
}
