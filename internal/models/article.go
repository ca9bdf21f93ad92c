package models

import "time"

// Article is a live-feed item travelling from the feeder to the ingest worker.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source"`
	Topic       string    `json:"topic,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
