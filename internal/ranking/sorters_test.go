package ranking

import (
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
)

func placeIDs(places []model.Place) []int64 {
	out := make([]int64, len(places))
	for i, p := range places {
		out[i] = p.PlaceID
	}
	return out
}

func sameIDs(a, b []int64) bool {
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

func TestByLikeRatioTieBreak(t *testing.T) {
	places := []model.Place{
		{PlaceID: 42, LikeRatio: model.Ptr(0.80000)},
		{PlaceID: 7, LikeRatio: model.Ptr(0.80000)},
		{PlaceID: 9, LikeRatio: model.Ptr(0.80005)},
		{PlaceID: 3, LikeRatio: model.Ptr(0.9)},
	}
	Sort(places, ByLikeRatio)
	want := []int64{3, 7, 9, 42}
	if got := placeIDs(places); !sameIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestLikeRatioFallback(t *testing.T) {
	p := model.Place{LikeCount: model.Ptr(int64(3)), DislikeCount: model.Ptr(int64(1))}
	if got := LikeRatio(&p); got != 0.75 {
		t.Errorf("LikeRatio() = %v, want 0.75", got)
	}
	if got := LikeRatio(&model.Place{}); got != 0 {
		t.Errorf("LikeRatio() without votes = %v", got)
	}
}

func TestByFavoriteRatio(t *testing.T) {
	places := []model.Place{
		{PlaceID: 1, FavoriteCount: 10, VisitCount: 1000},
		{PlaceID: 2, FavoriteCount: 50, VisitCount: 1000},
		{PlaceID: 3, FavoriteCount: 50, VisitCount: 0},
		{PlaceID: 4, FavoriteCount: 5, VisitCount: 100},
	}
	Sort(places, ByFavoriteRatio)
	want := []int64{2, 4, 1, 3}
	if got := placeIDs(places); !sameIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func reviewed(id int64, avg float64, count int, visits int64) model.Place {
	return model.Place{PlaceID: id, AverageRating: &avg, ReviewCount: &count, VisitCount: visits}
}

func TestByRatingDemotesThinlyReviewed(t *testing.T) {
	places := []model.Place{
		reviewed(1, 5.0, 2, 0),
		reviewed(2, 3.0, 3, 0),
		reviewed(3, 4.0, 10, 0),
		reviewed(4, 4.0, 12, 0),
		reviewed(5, 4.9, 0, 0),
	}
	Sort(places, ByRating(RatingMinReviews))
	want := []int64{4, 3, 2, 1, 5}
	if got := placeIDs(places); !sameIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	// Every qualifying place precedes every demoted one.
	seenDemoted := false
	for _, p := range places {
		if model.Int(p.ReviewCount) < RatingMinReviews {
			seenDemoted = true
		} else if seenDemoted {
			t.Fatalf("qualifying place %d after a demoted one", p.PlaceID)
		}
	}
}

func TestByHiddenBuckets(t *testing.T) {
	places := []model.Place{
		reviewed(1, 5.0, 5, 2_000_000),
		reviewed(2, 4.5, 5, 999_999),
		reviewed(3, 4.4, 5, 10),
		reviewed(4, 4.8, 5, 500),
		reviewed(5, 4.5, 5, 1_000_000),
	}
	Sort(places, ByHidden(HiddenMinRating, HiddenMaxVisits))
	want := []int64{4, 2, 1, 5, 3}
	if got := placeIDs(places); !sameIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestCountComparators(t *testing.T) {
	tests := []struct {
		name   string
		c      Comparator
		places []model.Place
		want   []int64
	}{
		{
			name: "reviews",
			c:    ByReviewCount,
			places: []model.Place{
				{PlaceID: 5, ReviewCount: model.Ptr(2)},
				{PlaceID: 1, ReviewCount: model.Ptr(2)},
				{PlaceID: 3, ReviewCount: model.Ptr(9)},
				{PlaceID: 2},
			},
			want: []int64{3, 1, 5, 2},
		},
		{
			name: "watchlist",
			c:    ByWatchlistCount,
			places: []model.Place{
				{PlaceID: 8, WatchlistCount: model.Ptr(1)},
				{PlaceID: 4, WatchlistCount: model.Ptr(4)},
				{PlaceID: 6, WatchlistCount: model.Ptr(4)},
			},
			want: []int64{4, 6, 8},
		},
		{
			name: "trend",
			c:    ByTrendScore,
			places: []model.Place{
				{PlaceID: 1, TrendScore: model.Ptr(-10.0)},
				{PlaceID: 2, TrendScore: model.Ptr(0.0)},
				{PlaceID: 3, TrendScore: model.Ptr(25.0)},
				{PlaceID: 4},
			},
			want: []int64{3, 2, 4, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Sort(tt.places, tt.c)
			if got := placeIDs(tt.places); !sameIDs(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrendScore(t *testing.T) {
	for _, current := range []int64{0, 1, -5, 1_000_000, math.MaxInt64} {
		got := TrendScore(current, 0)
		if got != 0 || math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("TrendScore(%d, 0) = %v, want 0", current, got)
		}
	}
	if got := TrendScore(150, 100); got != 50 {
		t.Errorf("TrendScore(150, 100) = %v, want 50", got)
	}
	if got := TrendScore(50, 100); got != -50 {
		t.Errorf("TrendScore(50, 100) = %v, want -50", got)
	}
}
