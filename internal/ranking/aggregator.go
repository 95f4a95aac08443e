package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
)

// ReviewStats accumulates one place's reviews. The average is derived on
// read so folding never divides.
type ReviewStats struct {
	Count int
	Sum   int
}

func (s ReviewStats) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// Aggregator folds the child tables into per-place statistics. Read errors
// are returned as-is; an empty map always means the table had no rows.
type Aggregator struct {
	reader store.Reader
	now    func() time.Time
}

func NewAggregator(reader store.Reader, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{reader: reader, now: now}
}

// AggregateReviews reads every review row.
func (a *Aggregator) AggregateReviews(ctx context.Context) (map[int64]ReviewStats, error) {
	rows, err := a.reader.Reviews(ctx, store.From(store.TableReviews))
	if err != nil {
		return nil, fmt.Errorf("aggregating reviews: %w", err)
	}
	stats := make(map[int64]ReviewStats)
	for _, r := range rows {
		s := stats[r.PlaceID]
		s.Count++
		s.Sum += r.Rating
		stats[r.PlaceID] = s
	}
	return stats, nil
}

// AggregateWatchlist counts watchlist entries per place.
func (a *Aggregator) AggregateWatchlist(ctx context.Context) (map[int64]int, error) {
	rows, err := a.reader.Watchlist(ctx, store.From(store.TableWatchlist))
	if err != nil {
		return nil, fmt.Errorf("aggregating watchlist: %w", err)
	}
	counts := make(map[int64]int)
	for _, e := range rows {
		counts[e.PlaceID]++
	}
	return counts, nil
}

// Yesterday is the UTC calendar date before now, as stored in
// place_stats_history.recorded_at.
func (a *Aggregator) Yesterday() string {
	return a.now().UTC().AddDate(0, 0, -1).Format(time.DateOnly)
}

// YesterdaySnapshots returns yesterday's visit count for each of ids that has
// a snapshot. Missing ids are absent from the map.
func (a *Aggregator) YesterdaySnapshots(ctx context.Context, ids []int64) (map[int64]int64, error) {
	visits := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return visits, nil
	}
	q := store.From(store.TableSnapshots).
		Eq("recorded_at", a.Yesterday()).
		In("place_id", ids)
	rows, err := a.reader.Snapshots(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading yesterday's snapshots: %w", err)
	}
	for _, h := range rows {
		visits[h.PlaceID] = h.VisitCount
	}
	return visits, nil
}

// TrendScore is the day-over-day visit growth in percent. With no previous
// count it is 0.
func TrendScore(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
