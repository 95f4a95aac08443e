// Package model holds the rows read by the ranking engine. The tables are
// written by the external sync job and by the review and watchlist APIs;
// nothing in this repository mutates them.
package model

import "time"

// Place is a game listing. Nullable columns are pointers. The trailing
// fields are derived during ranking and are never persisted.
type Place struct {
	PlaceID         int64      `json:"place_id"`
	Name            string     `json:"name"`
	CreatorName     string     `json:"creator_name"`
	ThumbnailURL    *string    `json:"thumbnail_url"`
	VisitCount      int64      `json:"visit_count"`
	FavoriteCount   int64      `json:"favorite_count"`
	Playing         *int64     `json:"playing"`
	Genre           *string    `json:"genre"`
	FirstReleasedAt *time.Time `json:"first_released_at,omitempty"`
	LastUpdatedAt   *time.Time `json:"last_updated_at,omitempty"`
	LikeCount       *int64     `json:"like_count,omitempty"`
	DislikeCount    *int64     `json:"dislike_count,omitempty"`
	LikeRatio       *float64   `json:"like_ratio,omitempty"`

	AverageRating  *float64 `json:"average_rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	WatchlistCount *int     `json:"mylist_count,omitempty"`
	TrendScore     *float64 `json:"trend_score,omitempty"`
}

// Review is the slice of a review row the engine reads: which place, and the
// 1-5 star rating.
type Review struct {
	PlaceID int64 `json:"place_id"`
	Rating  int   `json:"rating"`
}

// WatchlistEntry is one user's saved place.
type WatchlistEntry struct {
	PlaceID int64 `json:"place_id"`
}

// StatsSnapshot is the visit count of a place as recorded on one day.
type StatsSnapshot struct {
	PlaceID    int64  `json:"place_id"`
	VisitCount int64  `json:"visit_count"`
	RecordedAt string `json:"recorded_at"` // YYYY-MM-DD
}

// Int returns the pointed-to value or zero.
func Int(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Int64 returns the pointed-to value or zero.
func Int64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// Float returns the pointed-to value or zero.
func Float(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
