package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/DeafMist/credibility-engine/backend/internal/processing"
)

const maxBodyRunes = 4000

// BodyFetcher extracts the readable text of an article page.
type BodyFetcher interface {
	FetchBody(ctx context.Context, pageURL string) (string, error)
}

// Readability fetches a page and extracts its main text with go-readability.
type Readability struct {
	client *http.Client
}

// NewReadability creates a BodyFetcher with the given request timeout.
func NewReadability(timeout time.Duration) *Readability {
	return &Readability{client: &http.Client{Timeout: timeout}}
}

// NewReadabilityWithClient uses a custom HTTP client.
func NewReadabilityWithClient(client *http.Client) *Readability {
	return &Readability{client: client}
}

func (r *Readability) FetchBody(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse article url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build article request: %w", err)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s returned status %d", pageURL, res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("extract content from %s: %w", pageURL, err)
	}

	return processing.Truncate(processing.SqueezeText(article.TextContent), maxBodyRunes), nil
}
