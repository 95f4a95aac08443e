// Package ranking serves the twelve ranking views over the places table.
// Each view is a Config entry; the Processor validates a Request, resolves
// the entry and runs either the direct path (filtered fetch, sorted by the
// database or in memory) or the aggregation path (child-table statistics
// pick and order the candidate ids).
package ranking

import (
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
)

type Type string

const (
	TypeOverall       Type = "overall"
	TypePlaying       Type = "playing"
	TypeFavorites     Type = "favorites"
	TypeLikeRatio     Type = "likeRatio"
	TypeTrending      Type = "trending"
	TypeNewest        Type = "newest"
	TypeUpdated       Type = "updated"
	TypeRating        Type = "rating"
	TypeReviews       Type = "reviews"
	TypeMylist        Type = "mylist"
	TypeHidden        Type = "hidden"
	TypeFavoriteRatio Type = "favoriteRatio"
)

// Types lists every ranking type in display order.
var Types = []Type{
	TypeOverall,
	TypePlaying,
	TypeFavorites,
	TypeLikeRatio,
	TypeTrending,
	TypeNewest,
	TypeUpdated,
	TypeRating,
	TypeReviews,
	TypeMylist,
	TypeHidden,
	TypeFavoriteRatio,
}

// Genres is the closed genre vocabulary. "All" and "all" both mean no genre
// filter.
var Genres = []string{
	"All",
	"Adventure",
	"Fighting",
	"FPS",
	"Platformer",
	"RPG",
	"Simulation",
	"Sports",
	"Town and City",
	"Building",
	"Horror",
	"Naval",
	"Comedy",
	"Medieval",
	"Military",
	"Sci-Fi",
	"Western",
	"all",
}

// Request is one ranking query. Page and Limit are floats so that fractional
// input reaches validation instead of being truncated by the caller; nil
// means absent.
type Request struct {
	Type  Type     `json:"type"`
	Genre string   `json:"genre,omitempty"`
	Page  *float64 `json:"page,omitempty"`
	Limit *float64 `json:"limit,omitempty"`
}

// Response is one page of a ranking. TotalCount is set on the in-memory
// sorted paths, where the full candidate set is known.
type Response struct {
	Data       []model.Place `json:"data"`
	Page       int           `json:"page"`
	HasMore    bool          `json:"hasMore"`
	TotalCount *int          `json:"totalCount,omitempty"`
}

func filtersGenre(genre string) bool {
	return genre != "" && genre != "all" && genre != "All"
}
