// Command loadtest drives the ranking service with a mix of ranking tabs,
// genres and pages, then prints latency per ranking type, the cache hit
// rate and the status code split.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"
)

// cacheStatusHeader mirrors the header set by the ranking handler.
const cacheStatusHeader = "X-Cache-Status"

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Targets     []Target
	MaxPage     int
}

// Target is one ranking tab as a client would request it.
type Target struct {
	Type  string
	Genre string
	Limit int
}

func (t Target) url(base string, page int) string {
	q := url.Values{"type": {t.Type}, "page": {fmt.Sprint(page)}}
	if t.Genre != "" {
		q.Set("genre", t.Genre)
	}
	if t.Limit > 0 {
		q.Set("limit", fmt.Sprint(t.Limit))
	}
	// Pages after the first come from infinite scroll.
	endpoint := "/api/v1/ranking"
	if page > 1 {
		endpoint = "/api/v1/ranking/more"
	}
	return base + endpoint + "?" + q.Encode()
}

// typeStats collects the samples of one ranking type.
type typeStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	failures  int
}

type Stats struct {
	total       atomic.Int64
	failed      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	mu       sync.Mutex
	byType   map[string]*typeStats
	byStatus map[int]int
}

func NewStats() *Stats {
	return &Stats{
		byType:   make(map[string]*typeStats),
		byStatus: make(map[int]int),
	}
}

func (s *Stats) forType(rankingType string) *typeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.byType[rankingType]
	if !ok {
		ts = &typeStats{}
		s.byType[rankingType] = ts
	}
	return ts
}

// Record stores one finished request. status is 0 when the request never got
// a response.
func (s *Stats) Record(rankingType string, latency time.Duration, status int, cacheStatus string) {
	s.total.Add(1)
	switch cacheStatus {
	case "hit":
		s.cacheHits.Add(1)
	case "miss":
		s.cacheMisses.Add(1)
	}

	ok := status >= 200 && status < 300
	if !ok {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.byStatus[status]++
	s.mu.Unlock()

	ts := s.forType(rankingType)
	ts.mu.Lock()
	if ok {
		ts.latencies = append(ts.latencies, latency)
	} else {
		ts.failures++
	}
	ts.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the ranking service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	maxPage := flag.Int("pages", 3, "highest page requested per ranking tab")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: max(*concurrency, 1),
		Duration:    *duration,
		Targets:     defaultTargets(),
		MaxPage:     max(*maxPage, 1),
	}

	fmt.Printf("ranking load test: %s, %d workers for %s, %d tabs x %d pages\n\n",
		cfg.BaseURL, cfg.Concurrency, cfg.Duration, len(cfg.Targets), cfg.MaxPage)

	stats := run(cfg)
	if !report(os.Stdout, stats, cfg.Duration) {
		fmt.Fprintln(os.Stderr, "no requests completed; is the service running?")
		os.Exit(1)
	}
}

// defaultTargets weights the overall and trending tabs, which take most real
// traffic.
func defaultTargets() []Target {
	return []Target{
		{Type: "overall"},
		{Type: "overall"},
		{Type: "overall", Genre: "RPG"},
		{Type: "overall", Limit: 20},
		{Type: "trending"},
		{Type: "trending", Genre: "Horror"},
		{Type: "playing"},
		{Type: "favorites"},
		{Type: "likeRatio"},
		{Type: "newest"},
		{Type: "updated"},
		{Type: "rating"},
		{Type: "reviews"},
		{Type: "mylist"},
		{Type: "hidden"},
		{Type: "favoriteRatio"},
	}
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, client, cfg, w, stats)
		}()
	}
	wg.Wait()
	return stats
}

// worker scrolls through one tab at a time: it requests pages in order until
// the service says there is no more or MaxPage is reached, then moves on.
func worker(ctx context.Context, client *http.Client, cfg Config, offset int, stats *Stats) {
	for n := offset; ctx.Err() == nil; n++ {
		target := cfg.Targets[n%len(cfg.Targets)]
		for page := 1; page <= cfg.MaxPage && ctx.Err() == nil; page++ {
			hasMore, ok := fetch(ctx, client, target.url(cfg.BaseURL, page), target.Type, stats)
			if !ok || !hasMore {
				break
			}
		}
	}
}

func fetch(ctx context.Context, client *http.Client, rawURL, rankingType string, stats *Stats) (hasMore, ok bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, false
	}
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.Record(rankingType, latency, 0, "")
		}
		return false, false
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	stats.Record(rankingType, latency, resp.StatusCode, resp.Header.Get(cacheStatusHeader))
	return containsHasMore(body), resp.StatusCode == http.StatusOK
}

// containsHasMore avoids decoding the whole page just to read one flag.
func containsHasMore(body []byte) bool {
	return bytes.Contains(body, []byte(`"hasMore":true`))
}

// report prints the results and returns false when nothing completed.
func report(out io.Writer, stats *Stats, elapsed time.Duration) bool {
	total := stats.total.Load()
	failed := stats.failed.Load()
	if total == 0 {
		return false
	}

	fmt.Fprintf(out, "requests: %d (%.1f/s), failed: %d (%.2f%%)\n",
		total, float64(total)/elapsed.Seconds(), failed, float64(failed)/float64(total)*100)
	if hits, misses := stats.cacheHits.Load(), stats.cacheMisses.Load(); hits+misses > 0 {
		fmt.Fprintf(out, "cache: %.1f%% hit rate (%d hits, %d misses)\n",
			float64(hits)/float64(hits+misses)*100, hits, misses)
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "type\tok\tfailed\tp50\tp95\tp99\tmax\t")
	stats.mu.Lock()
	types := make([]string, 0, len(stats.byType))
	for t := range stats.byType {
		types = append(types, t)
	}
	stats.mu.Unlock()
	slices.Sort(types)

	var all []time.Duration
	for _, t := range types {
		ts := stats.forType(t)
		ts.mu.Lock()
		lat := slices.Clone(ts.latencies)
		failures := ts.failures
		ts.mu.Unlock()
		slices.Sort(lat)
		all = append(all, lat...)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t\n", t, len(lat), failures,
			percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), percentile(lat, 100))
	}
	slices.Sort(all)
	fmt.Fprintf(tw, "all\t%d\t%d\t%s\t%s\t%s\t%s\t\n", len(all), failed,
		percentile(all, 50), percentile(all, 95), percentile(all, 99), percentile(all, 100))
	tw.Flush()

	fmt.Fprintln(out)
	stats.mu.Lock()
	codes := make([]int, 0, len(stats.byStatus))
	for c := range stats.byStatus {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	for _, c := range codes {
		label := fmt.Sprint(c)
		if c == 0 {
			label = "transport error"
		}
		fmt.Fprintf(out, "  %s: %d\n", label, stats.byStatus[c])
	}
	stats.mu.Unlock()
	return true
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted)+99)/100 - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
