package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
)

func seed() *Store {
	s := New()
	s.AddPlaces(
		model.Place{PlaceID: 1, Name: "a", VisitCount: 100, FavoriteCount: 60, Playing: model.Ptr(int64(5)), Genre: model.Ptr("Horror")},
		model.Place{PlaceID: 2, Name: "b", VisitCount: 300, FavoriteCount: 10, Genre: model.Ptr("RPG")},
		model.Place{PlaceID: 3, Name: "c", VisitCount: 200, FavoriteCount: 90, Playing: model.Ptr(int64(50)), Genre: model.Ptr("Horror")},
		model.Place{PlaceID: 4, Name: "d", VisitCount: 200, FavoriteCount: 70},
	)
	return s
}

func ids(places []model.Place) []int64 {
	out := make([]int64, len(places))
	for i, p := range places {
		out[i] = p.PlaceID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlacesFilterAndOrder(t *testing.T) {
	s := seed()
	ctx := context.Background()

	tests := []struct {
		name string
		q    *store.Query
		want []int64
	}{
		{
			name: "gte with desc order and id tie-break",
			q:    store.From(store.TablePlaces).Gte("favorite_count", int64(50)).Order("visit_count", false),
			want: []int64{3, 4, 1},
		},
		{
			name: "nulls sort last",
			q:    store.From(store.TablePlaces).Order("playing", false),
			want: []int64{3, 1, 2, 4},
		},
		{
			name: "eq genre",
			q:    store.From(store.TablePlaces).Eq("genre", "Horror").Order("place_id", true),
			want: []int64{1, 3},
		},
		{
			name: "comparison never matches null",
			q:    store.From(store.TablePlaces).Lt("playing", int64(100)).Order("place_id", true),
			want: []int64{1, 3},
		},
		{
			name: "is null",
			q:    store.From(store.TablePlaces).IsNull("genre"),
			want: []int64{4},
		},
		{
			name: "in list",
			q:    store.From(store.TablePlaces).In("place_id", []int64{4, 2, 9}).Order("place_id", true),
			want: []int64{2, 4},
		},
		{
			name: "range window",
			q:    store.From(store.TablePlaces).Order("visit_count", false).Range(1, 2),
			want: []int64{3, 4},
		},
		{
			name: "range past end",
			q:    store.From(store.TablePlaces).Order("visit_count", false).Range(10, 19),
			want: []int64{},
		},
		{
			name: "limit",
			q:    store.From(store.TablePlaces).Order("favorite_count", false).Limit(2),
			want: []int64{3, 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Places(ctx, tt.q)
			if err != nil {
				t.Fatalf("Places() error = %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("Places() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFailAndReads(t *testing.T) {
	s := seed()
	boom := errors.New("connection reset")
	s.Fail(store.TableReviews, boom)

	if _, err := s.Reviews(context.Background(), store.From(store.TableReviews)); !errors.Is(err, boom) {
		t.Fatalf("Reviews() error = %v, want %v", err, boom)
	}
	if got := s.Reads(store.TableReviews); got != 1 {
		t.Errorf("Reads() = %d, want 1", got)
	}

	s.Fail(store.TableReviews, nil)
	if _, err := s.Reviews(context.Background(), store.From(store.TableReviews)); err != nil {
		t.Errorf("Reviews() after clearing failure: %v", err)
	}
}

func TestWrongTableAndInvalidQuery(t *testing.T) {
	s := seed()
	ctx := context.Background()
	if _, err := s.Places(ctx, store.From(store.TableReviews)); err == nil {
		t.Error("expected error for query sent to the wrong table")
	}
	if _, err := s.Places(ctx, store.From(store.TablePlaces).Select("*")); err == nil {
		t.Error("expected error for select *")
	}
}

func TestSnapshotsByDate(t *testing.T) {
	s := New()
	s.AddSnapshots(
		model.StatsSnapshot{PlaceID: 1, VisitCount: 10, RecordedAt: "2026-10-14"},
		model.StatsSnapshot{PlaceID: 1, VisitCount: 20, RecordedAt: "2026-10-15"},
		model.StatsSnapshot{PlaceID: 2, VisitCount: 30, RecordedAt: "2026-10-15"},
	)
	got, err := s.Snapshots(context.Background(),
		store.From(store.TableSnapshots).Eq("recorded_at", "2026-10-15").In("place_id", []int64{1}))
	if err != nil {
		t.Fatalf("Snapshots() error = %v", err)
	}
	if len(got) != 1 || got[0].VisitCount != 20 {
		t.Errorf("Snapshots() = %+v", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	data := []byte(`{
  "places": [{"place_id": 7, "name": "x", "creator_name": "y", "visit_count": 1, "favorite_count": 2, "genre": "RPG"}],
  "reviews": [{"place_id": 7, "rating": 5}],
  "mylist": [{"place_id": 7}],
  "place_stats_history": [{"place_id": 7, "visit_count": 1, "recorded_at": "2026-10-15"}]
}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	places, _ := s.Places(context.Background(), store.From(store.TablePlaces))
	if len(places) != 1 || model.Int64(&places[0].PlaceID) != 7 || places[0].Genre == nil || *places[0].Genre != "RPG" {
		t.Errorf("places = %+v", places)
	}
	reviews, _ := s.Reviews(context.Background(), store.From(store.TableReviews))
	if len(reviews) != 1 {
		t.Errorf("reviews = %+v", reviews)
	}
}
