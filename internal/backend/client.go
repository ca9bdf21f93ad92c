package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DeafMist/credibility-engine/backend/internal/normalize"
)

// ErrUnavailable reports that the analysis backend could not produce a usable answer:
// transport failure, timeout, non-success status or a malformed body.
var ErrUnavailable = errors.New("analysis backend unavailable")

const maxBodyBytes = 4 << 20

// Config tunes the HTTP client.
type Config struct {
	BaseURL        string
	AnalyzeTimeout time.Duration
	HealthTimeout  time.Duration
	IngestTimeout  time.Duration
}

// Client talks to the external credibility analysis service.
type Client struct {
	base *url.URL
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// Health is the result of the liveness probe.
type Health struct {
	Online    bool   `json:"online"`
	Documents *int64 `json:"documents,omitempty"`
}

// New builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http(s), got %q", cfg.BaseURL)
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = 60 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 2 * time.Second
	}
	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{base: base, cfg: cfg, http: httpClient, log: logger}, nil
}

// Analyze posts a claim to /analyze and returns the raw decoded payload.
// Every failure wraps ErrUnavailable.
func (c *Client) Analyze(ctx context.Context, claim string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AnalyzeTimeout)
	defer cancel()

	body, err := c.post(ctx, "/analyze", map[string]string{"claim": claim})
	if err != nil {
		return nil, fmt.Errorf("%w: analyze: %w", ErrUnavailable, err)
	}

	raw, err := normalize.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode analyze response: %w", ErrUnavailable, err)
	}
	return raw, nil
}

// Ingest submits a text to the backend knowledge base.
func (c *Client) Ingest(ctx context.Context, text, source string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.IngestTimeout)
	defer cancel()

	if _, err := c.post(ctx, "/ingest", map[string]string{"text": text, "source": source}); err != nil {
		return fmt.Errorf("%w: ingest: %w", ErrUnavailable, err)
	}
	return nil
}

// Health probes GET /. A missing document count is not an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/"), nil)
	if err != nil {
		return Health{}, fmt.Errorf("build health request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("%w: health: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Health{}, fmt.Errorf("%w: health: status %s", ErrUnavailable, res.Status)
	}

	h := Health{Online: true}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return h, nil
	}
	if raw, err := normalize.Decode(data); err == nil {
		h.Documents = documentCount(raw)
	}
	return h, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("backend call",
		slog.String("path", path),
		slog.Int("status", res.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("status %s: %s", res.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

var documentCountKeys = []string{"documents", "document_count", "doc_count", "vector_count", "count"}

func documentCount(raw map[string]any) *int64 {
	for _, k := range documentCountKeys {
		n, ok := raw[k].(json.Number)
		if !ok {
			continue
		}
		if v, err := n.Int64(); err == nil {
			return &v
		}
	}
	return nil
}
