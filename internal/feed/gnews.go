package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
)

const defaultGNewsURL = "https://gnews.io/api/v4"

// GNews fetches top headlines from gnews.io.
type GNews struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

// NewGNews creates a headline source. baseURL may be empty for the public endpoint.
func NewGNews(apiKey, baseURL string, client *http.Client) *GNews {
	if baseURL == "" {
		baseURL = defaultGNewsURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GNews{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: "en",
		client:   client,
	}
}

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// TopHeadlines returns at most limit headlines for a topic.
func (g *GNews) TopHeadlines(ctx context.Context, topic string, limit int) ([]models.Article, error) {
	q := url.Values{}
	q.Set("category", strings.ToLower(topic))
	q.Set("lang", g.language)
	q.Set("apikey", g.apiKey)
	if limit > 0 {
		q.Set("max", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build headlines request: %w", err)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines for %s: %w", topic, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("headlines for %s returned %s: %s", topic, res.Status, strings.TrimSpace(string(body)))
	}

	var parsed gnewsResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode headlines: %w", err)
	}

	items := parsed.Articles
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]models.Article, 0, len(items))
	for _, a := range items {
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		out = append(out, models.Article{
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			URL:         a.URL,
			Source:      a.Source.Name,
			Topic:       topic,
			PublishedAt: published,
		})
	}
	return out, nil
}
