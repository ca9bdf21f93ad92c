package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/credibility-engine/backend/internal/backend"
	"github.com/DeafMist/credibility-engine/backend/internal/config"
	"github.com/DeafMist/credibility-engine/backend/internal/dedupe"
	"github.com/DeafMist/credibility-engine/backend/internal/logger"
	"github.com/DeafMist/credibility-engine/backend/internal/models"
	"github.com/DeafMist/credibility-engine/backend/internal/processing"
)

const (
	titleWords    = 10
	maxIngestText = 8000
	dlqAttempts   = 5
)

type ingester interface {
	Ingest(ctx context.Context, text, source string) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	client, err := backend.New(backend.Config{
		BaseURL:       cfg.BackendURL,
		HealthTimeout: cfg.HealthTimeout,
		IngestTimeout: cfg.IngestTimeout,
	}, nil, log)
	if err != nil {
		log.Error("init backend client", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if h, err := client.Health(ctx); err != nil {
		log.Warn("analysis backend offline at startup", slog.Any("err", err))
	} else if h.Documents != nil {
		log.Info("analysis backend online", slog.Int64("documents", *h.Documents))
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:        kafka.TCP(cfg.KafkaBrokers...),
		Topic:       dlqTopic,
		MaxAttempts: 3,
	}
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, client, cache, msg); err != nil {
			log.Warn("ingest failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !deadLetter(ctx, log, dlqWriter, msg, err, time.Second) {
				// Leave uncommitted so the message is redelivered after restart.
				if ctx.Err() != nil {
					return
				}
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage turns one feed article into a knowledge-base submission.
// Articles already ingested within the dedupe window are skipped.
func processMessage(ctx context.Context, log *slog.Logger, b ingester, cache *dedupe.Cache, msg kafka.Message) error {
	var article models.Article
	if err := json.Unmarshal(msg.Value, &article); err != nil {
		return fmt.Errorf("decode article: %w", err)
	}

	title := processing.SqueezeText(article.Title)
	description := processing.SqueezeText(article.Description)
	if title == "" && description == "" {
		return errors.New("empty article")
	}
	if title == "" {
		title = processing.GenerateTitleFromText(description, titleWords)
	}

	text := processing.BuildIngestText(title, description)
	if content := processing.SqueezeText(article.Content); content != "" {
		text += "\n\n" + content
	}
	text = processing.Truncate(text, maxIngestText)

	source := strings.TrimSpace(article.Source)
	if source == "" {
		source = "unknown"
	}

	id := articleID(article, title, description)
	if cache.IsSeen(id) {
		log.Debug("duplicate article", slog.String("id", id))
		return nil
	}

	if err := b.Ingest(ctx, text, source); err != nil {
		return err
	}

	cache.MarkSeen(id)
	log.Info("article ingested",
		slog.String("id", id),
		slog.String("title", title),
		slog.String("source", source),
	)
	return nil
}

// articleID prefers the article URL; syndicated copies without one collapse by content.
func articleID(a models.Article, title, description string) string {
	if u := strings.TrimSpace(a.URL); u != "" {
		return processing.BuildDocumentID(u, "", time.Time{})
	}
	return processing.BuildDocumentID(title, description, a.PublishedAt)
}

// deadLetter copies msg to the DLQ with error context, retrying with exponential backoff.
// It reports whether the copy was written.
func deadLetter(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error, backoff time.Duration) bool {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	dlqMsg := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	for attempt := range dlqAttempts {
		err := w.WriteMessages(ctx, dlqMsg)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		wait := backoff << uint(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}
