package feed_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/credibility-engine/backend/internal/feed"
	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

func TestGNewsTopHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/top-headlines", r.URL.Path)
		require.Equal(t, "health", r.URL.Query().Get("category"))
		require.Equal(t, "en", r.URL.Query().Get("lang"))
		require.Equal(t, "secret", r.URL.Query().Get("apikey"))
		require.Equal(t, "2", r.URL.Query().Get("max"))
		_, _ = w.Write([]byte(`{"totalArticles": 3, "articles": [
			{"title": "A", "description": "a", "url": "https://n/a", "publishedAt": "2025-01-02T03:04:05Z", "source": {"name": "Reuters"}},
			{"title": "B", "description": "b", "url": "https://n/b", "source": {"name": "AP"}},
			{"title": "C", "description": "c", "url": "https://n/c", "source": {"name": "BBC"}}
		]}`))
	}))
	defer srv.Close()

	g := feed.NewGNews("secret", srv.URL, srv.Client())
	got, err := g.TopHeadlines(context.Background(), "Health", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "A", got[0].Title)
	require.Equal(t, "Reuters", got[0].Source)
	require.Equal(t, "Health", got[0].Topic)
	require.Equal(t, 2025, got[0].PublishedAt.Year())
	require.True(t, got[1].PublishedAt.IsZero())
}

func TestGNewsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errors":["invalid api key"]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := feed.NewGNews("bad", srv.URL, srv.Client()).TopHeadlines(context.Background(), "general", 5)
	require.ErrorContains(t, err, "invalid api key")
}

type stubSource struct {
	byTopic map[string][]models.Article
}

func (s *stubSource) TopHeadlines(_ context.Context, topic string, limit int) ([]models.Article, error) {
	items, ok := s.byTopic[topic]
	if !ok {
		return nil, errors.New("unknown topic")
	}
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]models.Article, len(items))
	copy(out, items)
	return out, nil
}

type stubBodies struct{}

func (stubBodies) FetchBody(_ context.Context, pageURL string) (string, error) {
	if pageURL == "https://n/broken" {
		return "", errors.New("timeout")
	}
	return "body of " + pageURL, nil
}

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestCollectorRunOnce(t *testing.T) {
	src := &stubSource{byTopic: map[string][]models.Article{
		"general": {
			{Title: "G1", URL: "https://n/g1", Topic: "general"},
			{Title: "G2", URL: "https://n/broken", Topic: "general"},
		},
		"health": {{Title: "H1", URL: "https://n/h1", Topic: "health"}},
	}}
	w := &stubWriter{}
	c := feed.NewCollector(src, stubBodies{}, feed.NewPublisher(w), []string{"general", "health", "missing"}, 5, nil)

	n, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, w.msgs, 3)

	var articles []models.Article
	for _, m := range w.msgs {
		var a models.Article
		require.NoError(t, json.Unmarshal(m.Value, &a))
		require.Equal(t, a.URL, string(m.Key))
		articles = append(articles, a)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].Title < articles[j].Title })
	require.Equal(t, "body of https://n/g1", articles[0].Content)
	require.Empty(t, articles[1].Content)
	require.Equal(t, "body of https://n/h1", articles[2].Content)
}

func TestCollectorPublishFailure(t *testing.T) {
	src := &stubSource{byTopic: map[string][]models.Article{"general": {{Title: "G1"}}}}
	w := &stubWriter{err: errors.New("broker down")}
	c := feed.NewCollector(src, nil, feed.NewPublisher(w), []string{"general"}, 5, nil)

	_, err := c.RunOnce(context.Background())
	require.ErrorContains(t, err, "broker down")
}

func TestPublisherSkipsEmptyBatch(t *testing.T) {
	w := &stubWriter{err: errors.New("should not be called")}
	require.NoError(t, feed.NewPublisher(w).Publish(context.Background(), nil))
	require.Empty(t, w.msgs)
}

func TestReadabilityFetchBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Story</title></head><body>
			<nav>Home | About</nav>
			<article><h1>Story</h1>
			<p>Scientists confirmed the findings after a decade of careful observation and independent replication across several laboratories.</p>
			<p>The report was published in a peer reviewed journal and summarised by several national outlets on the same day.</p>
			</article></body></html>`))
	}))
	defer srv.Close()

	body, err := feed.NewReadabilityWithClient(srv.Client()).FetchBody(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	require.Contains(t, body, "Scientists confirmed the findings")
}

func TestReadabilityFetchBodyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := feed.NewReadabilityWithClient(srv.Client()).FetchBody(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
}
