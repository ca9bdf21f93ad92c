package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher sends collected articles to the ingest topic.
type Publisher struct {
	writer MessageWriter
}

// NewPublisher wraps a Kafka writer.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes one message per article, keyed by URL so retries land on the same partition.
func (p *Publisher) Publish(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(articles))
	for _, a := range articles {
		value, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal article: %w", err)
		}
		key := a.URL
		if key == "" {
			key = a.Title
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(key),
			Value: value,
			Headers: []kafka.Header{
				{Key: "topic", Value: []byte(a.Topic)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write articles: %w", err)
	}
	return nil
}
