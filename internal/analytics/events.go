// Package analytics tracks query traffic. The Collector buffers events and
// publishes them to Kafka; the Aggregator consumes the topic and serves
// rolled-up statistics over HTTP.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventReindex    EventType = "reindex"
)

// SearchEvent describes one executed query.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	TokenCount int       `json:"token_count"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// ReindexEvent describes one full rebuild-and-swap of the index.
type ReindexEvent struct {
	Type       EventType `json:"type"`
	Records    int       `json:"records"`
	Terms      int       `json:"terms"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
