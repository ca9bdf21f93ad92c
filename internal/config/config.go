package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/credibility-engine/backend/internal/history"
	"github.com/DeafMist/credibility-engine/backend/internal/translate"
)

// Elasticsearch holds archive connection parameters.
type Elasticsearch struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Backend locates the external analysis service.
type Backend struct {
	BackendURL     string
	AnalyzeTimeout time.Duration
	HealthTimeout  time.Duration
	IngestTimeout  time.Duration
}

// Kafka describes the live-feed topic.
type Kafka struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// API describes the HTTP layer and the verification session it hosts.
type API struct {
	Elasticsearch
	Backend
	BindAddr        string
	DefaultLanguage translate.Language
	HistoryOrder    history.Order
	DefaultPage     int
	MaxPage         int
	TierPolicyFile  string
	GeminiAPIKey    string
	GeminiModel     string
	ArchiveEnabled  bool
}

// Worker holds configuration for the Kafka -> /ingest worker.
type Worker struct {
	Backend
	Kafka
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
}

// Feeder configures the scheduled headline collector.
type Feeder struct {
	Kafka
	GNewsAPIKey      string
	GNewsURL         string
	Topics           []string
	ArticlesPerTopic int
	Schedule         string
	FetchBody        bool
	FetchTimeout     time.Duration
}

// Retention configures the archive cleanup loop.
type Retention struct {
	Elasticsearch
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadElasticsearch() Elasticsearch {
	return Elasticsearch{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "verifications"),
	}
}

func loadBackend() (Backend, error) {
	b := Backend{
		BackendURL:     getEnv("BACKEND_URL", "http://backend:8000"),
		AnalyzeTimeout: getDuration("BACKEND_TIMEOUT", "60s"),
		HealthTimeout:  getDuration("BACKEND_HEALTH_TIMEOUT", "2s"),
		IngestTimeout:  getDuration("BACKEND_INGEST_TIMEOUT", "30s"),
	}
	u, err := url.Parse(b.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Backend{}, fmt.Errorf("BACKEND_URL must be an http(s) url, got %q", b.BackendURL)
	}
	if b.AnalyzeTimeout <= 0 {
		return Backend{}, fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	return b, nil
}

func loadKafka(defaultTopic string) (Kafka, error) {
	k := Kafka{
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", defaultTopic),
	}
	if len(k.KafkaBrokers) == 0 {
		return Kafka{}, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	return k, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	b, err := loadBackend()
	if err != nil {
		return nil, err
	}

	lang, ok := translate.ParseLanguage(getEnv("DEFAULT_LANGUAGE", string(translate.DefaultLanguage)))
	if !ok {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE %q is not supported", lang)
	}

	order, err := history.ParseOrder(getEnv("HISTORY_ORDER", "newest"))
	if err != nil {
		return nil, fmt.Errorf("HISTORY_ORDER: %w", err)
	}

	c := &API{
		Elasticsearch:   loadElasticsearch(),
		Backend:         b,
		BindAddr:        getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultLanguage: lang,
		HistoryOrder:    order,
		DefaultPage:     getInt("HISTORY_PAGE_SIZE", 20),
		MaxPage:         getInt("HISTORY_MAX_PAGE_SIZE", 100),
		TierPolicyFile:  getEnv("TIER_POLICY_FILE", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		ArchiveEnabled:  getBool("ARCHIVE_ENABLED", false),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("HISTORY_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("HISTORY_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("HISTORY_PAGE_SIZE cannot exceed HISTORY_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	b, err := loadBackend()
	if err != nil {
		return nil, err
	}
	k, err := loadKafka("articles_raw")
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Backend:        b,
		Kafka:          k,
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "ingest-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
	}

	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadFeeder builds a Feeder config from environment variables.
func LoadFeeder() (*Feeder, error) {
	k, err := loadKafka("articles_raw")
	if err != nil {
		return nil, err
	}

	c := &Feeder{
		Kafka:            k,
		GNewsAPIKey:      getEnv("GNEWS_API_KEY", ""),
		GNewsURL:         getEnv("GNEWS_URL", "https://gnews.io/api/v4"),
		Topics:           splitAndTrim(getEnv("FEED_TOPICS", "general,health,science,technology")),
		ArticlesPerTopic: getInt("FEED_ARTICLES_PER_TOPIC", 5),
		Schedule:         getEnv("FEED_SCHEDULE", "@every 15m"),
		FetchBody:        getBool("FEED_FETCH_BODY", false),
		FetchTimeout:     getDuration("FEED_FETCH_TIMEOUT", "10s"),
	}

	if c.GNewsAPIKey == "" {
		return nil, fmt.Errorf("GNEWS_API_KEY is required")
	}
	if len(c.Topics) == 0 {
		return nil, fmt.Errorf("FEED_TOPICS must contain at least one topic")
	}
	if c.ArticlesPerTopic <= 0 {
		return nil, fmt.Errorf("FEED_ARTICLES_PER_TOPIC must be positive")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return nil, fmt.Errorf("FEED_SCHEDULE: %w", err)
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Elasticsearch: loadElasticsearch(),
		Interval:      getDuration("RETENTION_CRON", "24h"),
		MaxAge:        getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize:     getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
