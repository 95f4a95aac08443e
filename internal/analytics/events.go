// Package analytics records which ranking pages are served. The service
// publishes one RankingEvent per request to Kafka; the aggregator consumes the
// topic and keeps running totals for the analytics endpoint.
package analytics

import "time"

type EventType string

const (
	EventRankingServed EventType = "ranking_served"
	EventRankingFailed EventType = "ranking_failed"
)

// RankingEvent describes one ranking request after it has been answered.
// Invalid requests are not tracked.
type RankingEvent struct {
	Type        EventType `json:"type"`
	RankingType string    `json:"ranking_type"`
	Genre       string    `json:"genre"`
	Page        int       `json:"page"`
	Limit       int       `json:"limit"`
	Returned    int       `json:"returned"`
	HasMore     bool      `json:"has_more"`
	CacheStatus string    `json:"cache_status"`
	LoadMore    bool      `json:"load_more"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Key partitions events by ranking type.
func (e RankingEvent) Key() string {
	return e.RankingType
}
