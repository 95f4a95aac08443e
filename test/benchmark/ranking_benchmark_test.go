package benchmark

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking/cache"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store/memory"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

var genres = []string{"Horror", "RPG", "Sports", "Town and City", "Adventure"}

// syntheticPlaces builds n places with derived fields populated, the shape
// the comparators see after aggregation and enrichment.
func syntheticPlaces(n int, seed uint64) []model.Place {
	r := rand.New(rand.NewPCG(seed, 1))
	places := make([]model.Place, n)
	for i := range places {
		likes := r.Int64N(5000)
		dislikes := r.Int64N(1000)
		reviews := r.IntN(40)
		mylist := r.IntN(300)
		released := now.Add(-time.Duration(r.IntN(365*24)) * time.Hour)
		p := model.Place{
			PlaceID:         int64(i + 1),
			Name:            fmt.Sprintf("place %d", i),
			VisitCount:      r.Int64N(2_000_000),
			FavoriteCount:   r.Int64N(50_000),
			Playing:         model.Ptr(r.Int64N(10_000)),
			Genre:           model.Ptr(genres[r.IntN(len(genres))]),
			FirstReleasedAt: &released,
			LastUpdatedAt:   model.Ptr(released.Add(time.Duration(r.IntN(1000)) * time.Hour)),
			LikeCount:       &likes,
			DislikeCount:    &dislikes,
			ReviewCount:     &reviews,
			WatchlistCount:  &mylist,
			TrendScore:      model.Ptr(r.Float64() * 100),
		}
		if reviews > 0 {
			p.AverageRating = model.Ptr(1 + r.Float64()*4)
		}
		if i%10 == 0 {
			p.LikeCount, p.DislikeCount = nil, nil
		}
		places[i] = p
	}
	return places
}

// BenchmarkSort measures each comparator over candidate sets of the sizes
// the engine sorts in memory.
func BenchmarkSort(b *testing.B) {
	comparators := []struct {
		name string
		cmp  ranking.Comparator
	}{
		{"likeRatio", ranking.ByLikeRatio},
		{"favoriteRatio", ranking.ByFavoriteRatio},
		{"rating", ranking.ByRating(ranking.RatingMinReviews)},
		{"reviews", ranking.ByReviewCount},
		{"trending", ranking.ByTrendScore},
		{"hidden", ranking.ByHidden(ranking.HiddenMinRating, ranking.HiddenMaxVisits)},
		{"mylist", ranking.ByWatchlistCount},
	}
	for _, size := range []int{100, 500, 5000} {
		base := syntheticPlaces(size, 42)
		for _, c := range comparators {
			b.Run(fmt.Sprintf("%s/n_%d", c.name, size), func(b *testing.B) {
				work := make([]model.Place, size)
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					copy(work, base)
					ranking.Sort(work, c.cmp)
				}
			})
		}
	}
}

// BenchmarkProcessor measures a full GetRanking call per type over an
// in-memory store with 5000 places.
func BenchmarkProcessor(b *testing.B) {
	places := syntheticPlaces(5000, 7)
	s := memory.New()
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
	r := rand.New(rand.NewPCG(7, 2))
	for i := range places {
		p := places[i]
		p.AverageRating, p.ReviewCount, p.WatchlistCount, p.TrendScore = nil, nil, nil, nil
		s.AddPlaces(p)
		for range r.IntN(8) {
			s.AddReviews(model.Review{PlaceID: p.PlaceID, Rating: 1 + r.IntN(5)})
		}
		for range r.IntN(5) {
			s.AddWatchlist(model.WatchlistEntry{PlaceID: p.PlaceID})
		}
		s.AddSnapshots(model.StatsSnapshot{PlaceID: p.PlaceID, VisitCount: p.VisitCount - r.Int64N(1000), RecordedAt: yesterday})
	}

	proc, err := ranking.NewProcessor(s, ranking.WithClock(func() time.Time { return now }))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	limit := float64(ranking.DefaultPageSize)

	for _, typ := range ranking.Types {
		b.Run(string(typ), func(b *testing.B) {
			req := ranking.Request{Type: typ, Genre: "all", Limit: &limit}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := proc.GetRanking(ctx, req); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkValidateRequest(b *testing.B) {
	page, limit := 3.0, 25.0
	req := ranking.Request{Type: ranking.TypeHidden, Genre: "Town and City", Page: &page, Limit: &limit}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := ranking.ValidateRequest(req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSanitize(b *testing.B) {
	page, limit := 2.7, 1000.0
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ranking.SanitizePage(&page)
		_ = ranking.SanitizeLimit(&limit, ranking.DefaultPageSize)
	}
}

func BenchmarkCacheKey(b *testing.B) {
	page, limit := 4.0, 20.0
	req := ranking.Request{Type: ranking.TypeTrending, Genre: "All", Page: &page, Limit: &limit}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = cache.Key(req, ranking.DefaultPageSize)
	}
}
