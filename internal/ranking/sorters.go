package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
)

// Comparator orders two places: negative if a ranks first. Every comparator
// here falls back to ascending place_id, so equal metrics never leave the
// order to the sort algorithm.
type Comparator func(a, b *model.Place) int

// Sort orders places in place with c. The sort is stable, so for a
// comparator with a tolerance (ByLikeRatio) the input order settles near-ties.
func Sort(places []model.Place, c Comparator) {
	slices.SortStableFunc(places, func(a, b model.Place) int { return c(&a, &b) })
}

func byID(a, b *model.Place) int {
	return cmp.Compare(a.PlaceID, b.PlaceID)
}

// desc compares so that larger values rank first.
func desc[T cmp.Ordered](a, b T) int {
	return cmp.Compare(b, a)
}

// LikeRatio returns the stored like ratio, or likes/(likes+dislikes) when it
// has not been computed yet.
func LikeRatio(p *model.Place) float64 {
	if p.LikeRatio != nil {
		return *p.LikeRatio
	}
	likes := model.Int64(p.LikeCount)
	total := likes + model.Int64(p.DislikeCount)
	if total <= 0 {
		return 0
	}
	return float64(likes) / float64(total)
}

// FavoriteRatio is favorites per visit, 0 for an unvisited place.
func FavoriteRatio(p *model.Place) float64 {
	if p.VisitCount <= 0 {
		return 0
	}
	return float64(p.FavoriteCount) / float64(p.VisitCount)
}

// ByLikeRatio treats ratios closer than 0.0001 as equal.
func ByLikeRatio(a, b *model.Place) int {
	ra, rb := LikeRatio(a), LikeRatio(b)
	if math.Abs(ra-rb) > likeRatioEpsilon {
		return desc(ra, rb)
	}
	return byID(a, b)
}

func ByFavoriteRatio(a, b *model.Place) int {
	if c := desc(FavoriteRatio(a), FavoriteRatio(b)); c != 0 {
		return c
	}
	return byID(a, b)
}

// ByRating puts places with fewer than minReviews reviews after all others.
// Within each group: average desc, review count desc, id asc.
func ByRating(minReviews int) Comparator {
	return func(a, b *model.Place) int {
		qa := model.Int(a.ReviewCount) >= minReviews
		qb := model.Int(b.ReviewCount) >= minReviews
		if qa != qb {
			if qa {
				return -1
			}
			return 1
		}
		if c := desc(model.Float(a.AverageRating), model.Float(b.AverageRating)); c != 0 {
			return c
		}
		if c := desc(model.Int(a.ReviewCount), model.Int(b.ReviewCount)); c != 0 {
			return c
		}
		return byID(a, b)
	}
}

func ByReviewCount(a, b *model.Place) int {
	if c := desc(model.Int(a.ReviewCount), model.Int(b.ReviewCount)); c != 0 {
		return c
	}
	return byID(a, b)
}

func ByTrendScore(a, b *model.Place) int {
	if c := desc(model.Float(a.TrendScore), model.Float(b.TrendScore)); c != 0 {
		return c
	}
	return byID(a, b)
}

// IsHidden reports whether p is a hidden gem: well rated but little visited.
func IsHidden(p *model.Place, minRating float64, maxVisits int64) bool {
	return model.Float(p.AverageRating) >= minRating && p.VisitCount < maxVisits
}

// ByHidden buckets hidden gems ahead of everything else, then orders each
// bucket by average rating.
func ByHidden(minRating float64, maxVisits int64) Comparator {
	return func(a, b *model.Place) int {
		ha, hb := IsHidden(a, minRating, maxVisits), IsHidden(b, minRating, maxVisits)
		if ha != hb {
			if ha {
				return -1
			}
			return 1
		}
		if c := desc(model.Float(a.AverageRating), model.Float(b.AverageRating)); c != 0 {
			return c
		}
		return byID(a, b)
	}
}

func ByWatchlistCount(a, b *model.Place) int {
	if c := desc(model.Int(a.WatchlistCount), model.Int(b.WatchlistCount)); c != 0 {
		return c
	}
	return byID(a, b)
}
