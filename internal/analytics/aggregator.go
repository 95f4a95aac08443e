package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/metrics"
)

// latencyWindow is how many recent latencies feed the percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalRequests     int64      `json:"total_requests"`
	FailedRequests    int64      `json:"failed_requests"`
	LoadMoreRequests  int64      `json:"load_more_requests"`
	EmptyPages        int64      `json:"empty_pages"`
	CacheHits         int64      `json:"cache_hits"`
	CacheMisses       int64      `json:"cache_misses"`
	CacheBypassed     int64      `json:"cache_bypassed"`
	AvgLatencyMs      float64    `json:"avg_latency_ms"`
	P50LatencyMs      int64      `json:"p50_latency_ms"`
	P95LatencyMs      int64      `json:"p95_latency_ms"`
	P99LatencyMs      int64      `json:"p99_latency_ms"`
	TopTypes          []KeyCount `json:"top_types"`
	TopGenres         []KeyCount `json:"top_genres"`
	RequestsPerMinute float64    `json:"requests_per_minute"`
	Since             time.Time  `json:"since"`
}

type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Aggregator keeps in-memory totals over consumed ranking events.
type Aggregator struct {
	mu        sync.RWMutex
	total     int64
	failed    int64
	loadMore  int64
	empty     int64
	cache     map[string]int64
	latencies []int64
	next      int
	types     map[string]int64
	genres    map[string]int64
	start     time.Time
	now       func() time.Time

	metrics *metrics.Metrics
	topic   string
	logger  *slog.Logger
}

func NewAggregator(topic string, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		cache:     make(map[string]int64),
		latencies: make([]int64, 0, 1024),
		types:     make(map[string]int64),
		genres:    make(map[string]int64),
		start:     time.Now(),
		now:       time.Now,
		metrics:   m,
		topic:     topic,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes ranking events from the events topic. Undecodable
// messages are logged and acknowledged.
func (a *Aggregator) HandleEvent() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[RankingEvent](value)
		if err != nil {
			a.metrics.EventsTotal.WithLabelValues(a.topic, "invalid").Inc()
			a.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		a.Record(event)
		a.metrics.EventsTotal.WithLabelValues(a.topic, "consumed").Inc()
		return nil
	}
}

// Track records event in-process. The service uses it in place of the
// Kafka collector when Kafka is disabled.
func (a *Aggregator) Track(event RankingEvent) {
	a.Record(event)
}

func (a *Aggregator) Record(event RankingEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if event.Type == EventRankingFailed {
		a.failed++
	}
	if event.LoadMore {
		a.loadMore++
	}
	if event.Type == EventRankingServed && event.Returned == 0 {
		a.empty++
	}
	if event.CacheStatus != "" {
		a.cache[event.CacheStatus]++
	}
	a.types[event.RankingType]++
	if event.Genre != "" {
		a.genres[event.Genre]++
	}

	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalRequests:    a.total,
		FailedRequests:   a.failed,
		LoadMoreRequests: a.loadMore,
		EmptyPages:       a.empty,
		CacheHits:        a.cache["hit"],
		CacheMisses:      a.cache["miss"],
		CacheBypassed:    a.cache["bypass"],
		TopTypes:         topN(a.types, 12),
		TopGenres:        topN(a.genres, 10),
		Since:            a.start.UTC(),
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.start).Minutes(); elapsed > 0 {
		stats.RequestsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then key ascending.
func topN(counts map[string]int64, n int) []KeyCount {
	result := make([]KeyCount, 0, len(counts))
	for k, v := range counts {
		result = append(result, KeyCount{Key: k, Count: v})
	}
	slices.SortFunc(result, func(x, y KeyCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Key, y.Key)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
