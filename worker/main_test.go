package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/credibility-engine/backend/internal/dedupe"
	"github.com/DeafMist/credibility-engine/backend/internal/logger"
	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

type submission struct {
	text   string
	source string
}

type stubIngester struct {
	got []submission
	err error
}

func (s *stubIngester) Ingest(_ context.Context, text, source string) error {
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, submission{text: text, source: source})
	return nil
}

type stubDLQ struct {
	failures int
	written  []kafka.Message
	calls    int
}

func (d *stubDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	d.calls++
	if d.calls <= d.failures {
		return errors.New("broker unavailable")
	}
	d.written = append(d.written, msgs...)
	return nil
}

func articleMessage(t *testing.T, a models.Article) kafka.Message {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	return kafka.Message{Value: data, Partition: 2, Offset: 17}
}

func TestProcessMessageIngestsArticle(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	ing := &stubIngester{}
	msg := articleMessage(t, models.Article{
		Title:       "<b>WHO</b> issues new guidance",
		Description: "The agency updated  its advice on masks.",
		URL:         "https://example.com/who",
		Source:      "Reuters",
		PublishedAt: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
	})

	require.NoError(t, processMessage(context.Background(), logger.Discard(), ing, cache, msg))
	require.Equal(t, []submission{{
		text:   "WHO issues new guidance\nThe agency updated its advice on masks.",
		source: "Reuters",
	}}, ing.got)

	// redelivery is a no-op
	require.NoError(t, processMessage(context.Background(), logger.Discard(), ing, cache, msg))
	require.Len(t, ing.got, 1)
}

func TestProcessMessageGeneratesTitleWhenMissing(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	ing := &stubIngester{}
	msg := articleMessage(t, models.Article{
		Description: "Scientists confirm the comet will pass safely. More details soon.",
		Content:     "Full article body.",
	})

	require.NoError(t, processMessage(context.Background(), logger.Discard(), ing, cache, msg))
	require.Len(t, ing.got, 1)
	require.Equal(t, "unknown", ing.got[0].source)
	require.Equal(t,
		"Scientists confirm the comet will pass safely\nScientists confirm the comet will pass safely. More details soon.\n\nFull article body.",
		ing.got[0].text)
}

func TestProcessMessageErrors(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)

	err := processMessage(context.Background(), logger.Discard(), &stubIngester{}, cache, kafka.Message{Value: []byte("{oops")})
	require.Error(t, err)

	err = processMessage(context.Background(), logger.Discard(), &stubIngester{}, cache, articleMessage(t, models.Article{Source: "x"}))
	require.Error(t, err)

	ing := &stubIngester{err: errors.New("backend down")}
	msg := articleMessage(t, models.Article{Title: "Headline", URL: "https://example.com/a"})
	require.Error(t, processMessage(context.Background(), logger.Discard(), ing, cache, msg))
	require.Zero(t, cache.Len())
}

func TestDeadLetterRetriesAndCarriesContext(t *testing.T) {
	dlq := &stubDLQ{failures: 2}
	msg := kafka.Message{Key: []byte("k"), Value: []byte("v"), Partition: 3, Offset: 99}

	ok := deadLetter(context.Background(), logger.Discard(), dlq, msg, errors.New("ingest: 502"), time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 3, dlq.calls)
	require.Len(t, dlq.written, 1)

	headers := map[string]string{}
	for _, h := range dlq.written[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "3", headers["original_partition"])
	require.Equal(t, "99", headers["original_offset"])
	require.Equal(t, "ingest: 502", headers["error"])
	require.Equal(t, []byte("k"), dlq.written[0].Key)
}

func TestDeadLetterGivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dlq := &stubDLQ{failures: 100}
	require.False(t, deadLetter(ctx, logger.Discard(), dlq, kafka.Message{}, errors.New("x"), time.Hour))
	require.Equal(t, 1, dlq.calls)
}
