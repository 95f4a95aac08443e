package ranking

import "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/config"

// Default thresholds. The quality floor and the hidden-gem bounds are
// business constants awaiting product confirmation; they can be overridden
// through Thresholds but the defaults must not drift.
const (
	DefaultPageSize        = 50
	MinFavoriteCount       = 50
	LikeRatioMinLikes      = 5
	RatingMinReviews       = 3
	HiddenMinRating        = 4.5
	HiddenMaxVisits        = 1_000_000
	FavoriteRatioMinVisits = 1000
	AggregationTopCount    = 100
	JSFetchSize            = 500
)

// Pagination bounds.
const (
	MaxPage  = 1000
	MinLimit = 1
	MaxLimit = 100
)

const likeRatioEpsilon = 0.0001

// Thresholds parameterises the configuration table.
type Thresholds struct {
	MinFavoriteCount       int64
	LikeRatioMinLikes      int64
	RatingMinReviews       int
	HiddenMinRating        float64
	HiddenMaxVisits        int64
	FavoriteRatioMinVisits int64
	AggregationTopCount    int
	JSFetchSize            int
	DefaultPageSize        int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFavoriteCount:       MinFavoriteCount,
		LikeRatioMinLikes:      LikeRatioMinLikes,
		RatingMinReviews:       RatingMinReviews,
		HiddenMinRating:        HiddenMinRating,
		HiddenMaxVisits:        HiddenMaxVisits,
		FavoriteRatioMinVisits: FavoriteRatioMinVisits,
		AggregationTopCount:    AggregationTopCount,
		JSFetchSize:            JSFetchSize,
		DefaultPageSize:        DefaultPageSize,
	}
}

// ThresholdsFromConfig takes every positive value from cfg and the default
// for the rest.
func ThresholdsFromConfig(cfg config.RankingConfig) Thresholds {
	t := DefaultThresholds()
	if cfg.MinFavoriteCount > 0 {
		t.MinFavoriteCount = cfg.MinFavoriteCount
	}
	if cfg.LikeRatioMinLikes > 0 {
		t.LikeRatioMinLikes = cfg.LikeRatioMinLikes
	}
	if cfg.RatingMinReviews > 0 {
		t.RatingMinReviews = cfg.RatingMinReviews
	}
	if cfg.HiddenMinRating > 0 {
		t.HiddenMinRating = cfg.HiddenMinRating
	}
	if cfg.HiddenMaxVisits > 0 {
		t.HiddenMaxVisits = cfg.HiddenMaxVisits
	}
	if cfg.FavoriteRatioMinVisits > 0 {
		t.FavoriteRatioMinVisits = cfg.FavoriteRatioMinVisits
	}
	if cfg.AggregationTopCount > 0 {
		t.AggregationTopCount = cfg.AggregationTopCount
	}
	if cfg.JSFetchSize > 0 {
		t.JSFetchSize = cfg.JSFetchSize
	}
	if cfg.DefaultPageSize > 0 {
		t.DefaultPageSize = cfg.DefaultPageSize
	}
	return t
}
