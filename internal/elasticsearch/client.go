package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/credibility-engine/backend/internal/models"
	"github.com/DeafMist/credibility-engine/backend/internal/processing"
)

// Client wraps go-elasticsearch with helpers for the verification archive.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger

	keywordLimit  int
	keywordMinLen int
}

// Document is the archived form of a verification record.
type Document struct {
	models.VerificationRecord
	Keywords     []string `json:"keywords"`
	EvidenceURLs []string `json:"evidence_urls,omitempty"`
}

// SearchParams narrow the archive query.
type SearchParams struct {
	Query    string
	Verdict  string
	Category string
	Tier     string
	MinScore *int
	MaxScore *int
	From     int
	Size     int
	Sort     string
	Start    *time.Time
	End      *time.Time
}

// SearchResult bundles hits and total count.
type SearchResult struct {
	Total int64      `json:"total"`
	Items []Document `json:"items"`
}

const indexMapping = `{
  "settings": {
    "analysis": {
      "normalizer": {
        "lowercase_keyword": {"type": "custom", "filter": ["lowercase"]}
      }
    }
  },
  "mappings": {
    "properties": {
      "id":        {"type": "keyword"},
      "claim":     {"type": "text"},
      "language":  {"type": "keyword"},
      "tier":      {"type": "keyword", "normalizer": "lowercase_keyword"},
      "color":     {"type": "keyword"},
      "keywords":  {"type": "keyword"},
      "evidence_urls": {"type": "keyword"},
      "timestamp": {"type": "date"},
      "result": {
        "properties": {
          "score":            {"type": "integer"},
          "verdict":          {"type": "keyword", "normalizer": "lowercase_keyword"},
          "category":         {"type": "keyword", "normalizer": "lowercase_keyword"},
          "confidence_score": {"type": "integer"},
          "sentiment":        {"type": "keyword"},
          "reasoning":        {"type": "text"},
          "key_evidence":     {"type": "text"},
          "related_claims":   {"type": "text"},
          "sources": {
            "properties": {
              "name":        {"type": "keyword"},
              "credibility": {"type": "keyword"}
            }
          }
        }
      }
    }
  }
}`

// New instantiates the Elasticsearch client.
func New(addr, index string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger, keywordLimit: 8, keywordMinLen: 4}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates the archive index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index failed: %s", strings.TrimSpace(string(body)))
	}
	c.log.Info("created archive index", slog.String("index", c.index))
	return nil
}

// ArchiveRecord writes a verification record into the archive.
func (c *Client) ArchiveRecord(ctx context.Context, rec models.VerificationRecord) error {
	doc := NewDocument(rec, c.keywordLimit, c.keywordMinLen)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// NewDocument derives the archived form of rec, tagging it with claim keywords and
// the links cited in the reasoning and key evidence.
func NewDocument(rec models.VerificationRecord, keywordLimit, keywordMinLen int) Document {
	cited := append([]string{rec.Result.Reasoning}, rec.Result.KeyEvidence...)
	return Document{
		VerificationRecord: rec,
		Keywords:           processing.ExtractKeywords(rec.Claim, keywordLimit, keywordMinLen),
		EvidenceURLs:       processing.ExtractURLs(strings.Join(cited, "\n")),
	}
}

// SearchRecords executes a bool query with optional filters.
func (c *Client) SearchRecords(ctx context.Context, params SearchParams) (*SearchResult, error) {
	body := BuildSearchBody(params)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}

	return &SearchResult{
		Total: parsed.Hits.Total.Value,
		Items: items,
	}, nil
}

// BuildSearchBody renders params into an Elasticsearch query body.
func BuildSearchBody(params SearchParams) map[string]any {
	if params.Size <= 0 {
		params.Size = 20
	}
	if params.Size > 200 {
		params.Size = 200
	}
	if params.From < 0 {
		params.From = 0
	}

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, 5)

	if params.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Query,
				"fields": []string{"claim^2", "result.reasoning", "result.key_evidence"},
			},
		})
	}

	terms := []struct{ field, value string }{
		{"result.verdict", strings.ToLower(params.Verdict)},
		{"result.category", strings.ToLower(params.Category)},
		{"tier", strings.ToLower(params.Tier)},
	}
	for _, t := range terms {
		if t.value != "" {
			filters = append(filters, map[string]any{
				"term": map[string]any{t.field: t.value},
			})
		}
	}

	if params.MinScore != nil || params.MaxScore != nil {
		scoreRange := map[string]any{}
		if params.MinScore != nil {
			scoreRange["gte"] = *params.MinScore
		}
		if params.MaxScore != nil {
			scoreRange["lte"] = *params.MaxScore
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"result.score": scoreRange},
		})
	}

	if params.Start != nil || params.End != nil {
		rangeQuery := map[string]any{}
		if params.Start != nil {
			rangeQuery["gte"] = params.Start.UTC().Format(time.RFC3339)
		}
		if params.End != nil {
			rangeQuery["lte"] = params.End.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"timestamp": rangeQuery,
			},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	body := map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": boolQuery,
		},
	}

	field, order, err := ParseSort(params.Sort)
	if err != nil {
		field, order, _ = ParseSort("")
	}
	body["sort"] = []map[string]any{
		{field: map[string]any{"order": order}},
	}

	return body
}

// sortFields maps the public sort keys onto document fields.
var sortFields = map[string]string{
	"timestamp":  "timestamp",
	"score":      "result.score",
	"confidence": "result.confidence_score",
}

// ParseSort validates a "field[:order]" sort key and resolves the document field.
// An empty key sorts by timestamp, newest first.
func ParseSort(raw string) (field, order string, err error) {
	name, dir, _ := strings.Cut(strings.TrimSpace(raw), ":")
	if name == "" {
		name = "timestamp"
	}
	field, ok := sortFields[strings.ToLower(name)]
	if !ok {
		return "", "", fmt.Errorf("unknown sort field %q", name)
	}
	switch order = strings.ToLower(dir); order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return "", "", fmt.Errorf("unknown sort order %q", dir)
	}
	return field, order, nil
}

// DeleteOlderThan removes records older than maxAge using batched delete-by-query.
// It loops until a batch returns fewer deleted documents than the requested batchSize.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	totalDeleted := int64(0)

	for {
		body := map[string]any{
			"query": map[string]any{
				"range": map[string]any{
					"timestamp": map[string]any{
						"lte": cutoff,
					},
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return totalDeleted, fmt.Errorf("marshal delete body: %w", err)
		}

		res, err := c.es.DeleteByQuery(
			[]string{c.index},
			bytes.NewReader(payload),
			c.es.DeleteByQuery.WithContext(ctx),
			c.es.DeleteByQuery.WithWaitForCompletion(true),
			c.es.DeleteByQuery.WithConflicts("proceed"),
			c.es.DeleteByQuery.WithScrollSize(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return totalDeleted, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
		}

		var parsed struct {
			Deleted int64 `json:"deleted"`
		}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			res.Body.Close()
			return totalDeleted, fmt.Errorf("decode delete response: %w", err)
		}
		res.Body.Close()

		totalDeleted += parsed.Deleted

		if parsed.Deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}

// Health reports cluster health.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}
