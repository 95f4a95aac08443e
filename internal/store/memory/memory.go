// Package memory is a store.Reader over in-process slices. It evaluates
// queries with the same semantics as the PostgreSQL reader and backs the
// engine's tests and the service's fixture mode.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
)

// Store holds the four tables. Fail, when set, is returned from every read
// of the named table, which lets tests exercise the error paths.
type Store struct {
	mu        sync.RWMutex
	places    []model.Place
	reviews   []model.Review
	watchlist []model.WatchlistEntry
	snapshots []model.StatsSnapshot
	fail      map[store.Table]error
	reads     map[store.Table]int
}

var _ store.Reader = (*Store)(nil)

func New() *Store {
	return &Store{
		fail:  make(map[store.Table]error),
		reads: make(map[store.Table]int),
	}
}

// Fixture is the JSON layout accepted by LoadFile.
type Fixture struct {
	Places    []model.Place          `json:"places"`
	Reviews   []model.Review         `json:"reviews"`
	Watchlist []model.WatchlistEntry `json:"mylist"`
	Snapshots []model.StatsSnapshot  `json:"place_stats_history"`
}

// LoadFile builds a Store from a JSON fixture file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	s := New()
	s.AddPlaces(f.Places...)
	s.AddReviews(f.Reviews...)
	s.AddWatchlist(f.Watchlist...)
	s.AddSnapshots(f.Snapshots...)
	return s, nil
}

func (s *Store) AddPlaces(p ...model.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = append(s.places, p...)
}

func (s *Store) AddReviews(r ...model.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, r...)
}

func (s *Store) AddWatchlist(w ...model.WatchlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlist = append(s.watchlist, w...)
}

func (s *Store) AddSnapshots(h ...model.StatsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, h...)
}

// Fail makes every subsequent read of t return err. A nil err clears it.
func (s *Store) Fail(t store.Table, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, t)
		return
	}
	s.fail[t] = err
}

// Reads reports how many queries have been executed against t.
func (s *Store) Reads(t store.Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[t]
}

func (s *Store) begin(ctx context.Context, q *store.Query, want store.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.Table != want {
		return fmt.Errorf("query for %s sent to %s reader", q.Table, want)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	s.reads[want]++
	return s.fail[want]
}

func (s *Store) Places(ctx context.Context, q *store.Query) ([]model.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, q, store.TablePlaces); err != nil {
		return nil, err
	}
	return run(s.places, q, placeField, func(p model.Place) int64 { return p.PlaceID }), nil
}

func (s *Store) Reviews(ctx context.Context, q *store.Query) ([]model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, q, store.TableReviews); err != nil {
		return nil, err
	}
	return run(s.reviews, q, reviewField, func(r model.Review) int64 { return r.PlaceID }), nil
}

func (s *Store) Watchlist(ctx context.Context, q *store.Query) ([]model.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, q, store.TableWatchlist); err != nil {
		return nil, err
	}
	return run(s.watchlist, q, watchlistField, func(w model.WatchlistEntry) int64 { return w.PlaceID }), nil
}

func (s *Store) Snapshots(ctx context.Context, q *store.Query) ([]model.StatsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, q, store.TableSnapshots); err != nil {
		return nil, err
	}
	return run(s.snapshots, q, snapshotField, func(h model.StatsSnapshot) int64 { return h.PlaceID }), nil
}

// run filters, orders and windows rows. field returns a column's value, or
// nil when the column is NULL.
func run[T any](rows []T, q *store.Query, field func(T, string) any, id func(T) int64) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if matches(row, q.Conditions, field) {
			out = append(out, row)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := field(out[i], q.OrderBy), field(out[j], q.OrderBy)
			switch {
			case a == nil && b == nil:
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				if c := compare(a, b); c != 0 {
					if q.Ascending {
						return c < 0
					}
					return c > 0
				}
			}
			return id(out[i]) < id(out[j])
		})
	}
	if q.Offset >= len(out) {
		return []T{}
	}
	out = out[q.Offset:]
	if q.Count > 0 && len(out) > q.Count {
		out = out[:q.Count]
	}
	return out
}

func matches[T any](row T, conds []store.Condition, field func(T, string) any) bool {
	for _, c := range conds {
		v := field(row, c.Field)
		switch c.Op {
		case store.OpIsNull:
			if v != nil {
				return false
			}
		case store.OpNotNull:
			if v == nil {
				return false
			}
		case store.OpIn:
			ids := c.Value.([]int64)
			n, ok := v.(int64)
			if !ok || !containsID(ids, n) {
				return false
			}
		default:
			// SQL semantics: a comparison against NULL is never true.
			if v == nil {
				return false
			}
			cmp := compare(v, c.Value)
			ok := false
			switch c.Op {
			case store.OpEq:
				ok = cmp == 0
			case store.OpGt:
				ok = cmp > 0
			case store.OpGte:
				ok = cmp >= 0
			case store.OpLt:
				ok = cmp < 0
			case store.OpLte:
				ok = cmp <= 0
			}
			if !ok {
				return false
			}
		}
	}
	return true
}

func containsID(ids []int64, n int64) bool {
	for _, id := range ids {
		if id == n {
			return true
		}
	}
	return false
}

// compare orders numbers numerically, times chronologically and anything
// else by its string form.
func compare(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func placeField(p model.Place, col string) any {
	switch col {
	case "place_id":
		return p.PlaceID
	case "name":
		return p.Name
	case "creator_name":
		return p.CreatorName
	case "thumbnail_url":
		return deref(p.ThumbnailURL)
	case "visit_count":
		return p.VisitCount
	case "favorite_count":
		return p.FavoriteCount
	case "playing":
		return deref(p.Playing)
	case "genre":
		return deref(p.Genre)
	case "first_released_at":
		return deref(p.FirstReleasedAt)
	case "last_updated_at":
		return deref(p.LastUpdatedAt)
	case "like_count":
		return deref(p.LikeCount)
	case "dislike_count":
		return deref(p.DislikeCount)
	case "like_ratio":
		return deref(p.LikeRatio)
	}
	return nil
}

func reviewField(r model.Review, col string) any {
	switch col {
	case "place_id":
		return r.PlaceID
	case "rating":
		return r.Rating
	}
	return nil
}

func watchlistField(w model.WatchlistEntry, col string) any {
	if col == "place_id" {
		return w.PlaceID
	}
	return nil
}

func snapshotField(h model.StatsSnapshot, col string) any {
	switch col {
	case "place_id":
		return h.PlaceID
	case "visit_count":
		return h.VisitCount
	case "recorded_at":
		return h.RecordedAt
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
