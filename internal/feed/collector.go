package feed

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

// HeadlineSource returns the current top headlines of a topic.
type HeadlineSource interface {
	TopHeadlines(ctx context.Context, topic string, limit int) ([]models.Article, error)
}

// Collector fetches headlines for several topics and hands them to a publisher.
type Collector struct {
	source    HeadlineSource
	bodies    BodyFetcher
	publisher *Publisher
	topics    []string
	perTopic  int
	log       *slog.Logger
}

// NewCollector wires a collector. bodies may be nil to skip full-text extraction.
func NewCollector(source HeadlineSource, bodies BodyFetcher, publisher *Publisher, topics []string, perTopic int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{
		source:    source,
		bodies:    bodies,
		publisher: publisher,
		topics:    topics,
		perTopic:  perTopic,
		log:       logger,
	}
}

// RunOnce collects every topic concurrently and publishes what was found.
// A failing topic is logged and skipped; only a publish failure is returned.
func (c *Collector) RunOnce(ctx context.Context) (int, error) {
	var (
		mu       sync.Mutex
		articles []models.Article
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, topic := range c.topics {
		g.Go(func() error {
			items, err := c.source.TopHeadlines(gctx, topic, c.perTopic)
			if err != nil {
				c.log.Warn("fetch topic failed", slog.String("topic", topic), slog.Any("err", err))
				return nil
			}
			c.attachBodies(gctx, items)

			mu.Lock()
			articles = append(articles, items...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := c.publisher.Publish(ctx, articles); err != nil {
		return 0, err
	}
	c.log.Info("feed collected", slog.Int("articles", len(articles)), slog.Int("topics", len(c.topics)))
	return len(articles), nil
}

func (c *Collector) attachBodies(ctx context.Context, items []models.Article) {
	if c.bodies == nil {
		return
	}
	for i := range items {
		if items[i].URL == "" {
			continue
		}
		body, err := c.bodies.FetchBody(ctx, items[i].URL)
		if err != nil {
			c.log.Debug("article body unavailable", slog.String("url", items[i].URL), slog.Any("err", err))
			continue
		}
		items[i].Content = body
	}
}
