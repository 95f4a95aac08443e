package ranking

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
)

type SortMethod string

const (
	// SortDB pushes ordering and pagination down to the store.
	SortDB SortMethod = "db"
	// SortJS fetches a candidate window and orders it in memory.
	SortJS SortMethod = "js"
)

// Aggregation names the child-table statistic that picks and orders the
// candidates of an aggregation-driven ranking.
type Aggregation int

const (
	AggregateNone Aggregation = iota
	AggregateReviewAverage
	AggregateReviewCount
	AggregateWatchlist
)

// Enrichment is extra per-row data attached on the direct in-memory path
// before sorting.
type Enrichment int

const (
	EnrichNone Enrichment = iota
	EnrichTrend
	EnrichReviews
)

// Config binds a ranking type to how it executes.
//
// SortKey is the DB ordering column. WindowKey orders the candidate fetch of
// a direct in-memory ranking so that the window is stable. FetchLimit is the
// window size on the in-memory paths and the top-N on the aggregation path.
// Filters narrow the direct paths only; aggregated ids are narrowed by genre
// alone.
type Config struct {
	Type                Type
	DataSource          store.Table
	RequiresAggregation bool
	Aggregation         Aggregation
	Filters             []Filter
	SortMethod          SortMethod
	SortKey             string
	WindowKey           string
	Compare             Comparator
	Enrichment          Enrichment
	DefaultLimit        int
	FetchLimit          int
}

// Configs builds the table for t. Every Type has exactly one entry.
func Configs(t Thresholds) map[Type]Config {
	minFavorites := Filter{Field: "favorite_count", Op: OpGte, Value: t.MinFavoriteCount}

	direct := func(typ Type, sortKey string, filters ...Filter) Config {
		return Config{
			Type:         typ,
			DataSource:   store.TablePlaces,
			Filters:      filters,
			SortMethod:   SortDB,
			SortKey:      sortKey,
			DefaultLimit: t.DefaultPageSize,
			FetchLimit:   t.DefaultPageSize,
		}
	}
	window := func(typ Type, windowKey string, c Comparator, e Enrichment, filters ...Filter) Config {
		return Config{
			Type:         typ,
			DataSource:   store.TablePlaces,
			Filters:      filters,
			SortMethod:   SortJS,
			WindowKey:    windowKey,
			Compare:      c,
			Enrichment:   e,
			DefaultLimit: t.DefaultPageSize,
			FetchLimit:   t.JSFetchSize,
		}
	}
	aggregated := func(typ Type, source store.Table, agg Aggregation, c Comparator, filters ...Filter) Config {
		return Config{
			Type:                typ,
			DataSource:          source,
			RequiresAggregation: true,
			Aggregation:         agg,
			Filters:             filters,
			SortMethod:          SortJS,
			Compare:             c,
			DefaultLimit:        t.DefaultPageSize,
			FetchLimit:          t.AggregationTopCount,
		}
	}

	return map[Type]Config{
		TypeOverall:   direct(TypeOverall, "visit_count", minFavorites),
		TypePlaying:   direct(TypePlaying, "playing", minFavorites),
		TypeFavorites: direct(TypeFavorites, "favorite_count"),
		TypeNewest:    direct(TypeNewest, "first_released_at", minFavorites),
		TypeUpdated:   direct(TypeUpdated, "last_updated_at", minFavorites),

		// ByLikeRatio is not transitive within its tolerance; the like_count,
		// place_id window order keeps near-ties deterministic.
		TypeLikeRatio: window(TypeLikeRatio, "like_count", ByLikeRatio, EnrichNone,
			Filter{Field: "like_count", Op: OpNotNull},
			Filter{Field: "dislike_count", Op: OpNotNull},
			Filter{Field: "like_count", Op: OpGte, Value: t.LikeRatioMinLikes},
		),
		TypeTrending: window(TypeTrending, "visit_count", ByTrendScore, EnrichTrend, minFavorites),
		TypeHidden: window(TypeHidden, "favorite_count", ByHidden(t.HiddenMinRating, t.HiddenMaxVisits), EnrichReviews,
			minFavorites,
			Filter{Field: "visit_count", Op: OpLt, Value: t.HiddenMaxVisits},
		),
		TypeFavoriteRatio: window(TypeFavoriteRatio, "visit_count", ByFavoriteRatio, EnrichNone,
			Filter{Field: "visit_count", Op: OpGte, Value: t.FavoriteRatioMinVisits},
		),

		TypeRating:  aggregated(TypeRating, store.TableReviews, AggregateReviewAverage, ByRating(t.RatingMinReviews), minFavorites),
		TypeReviews: aggregated(TypeReviews, store.TableReviews, AggregateReviewCount, ByReviewCount, minFavorites),
		TypeMylist:  aggregated(TypeMylist, store.TableWatchlist, AggregateWatchlist, ByWatchlistCount),
	}
}

// checkConfigs reports the first type without a usable entry.
func checkConfigs(configs map[Type]Config) error {
	for _, typ := range Types {
		c, ok := configs[typ]
		if !ok {
			return fmt.Errorf("ranking type %q has no configuration", typ)
		}
		switch {
		case c.Type != typ:
			return fmt.Errorf("ranking type %q is configured as %q", typ, c.Type)
		case c.SortMethod == SortDB && c.SortKey == "":
			return fmt.Errorf("ranking type %q sorts in the database without a sort key", typ)
		case c.SortMethod == SortJS && c.Compare == nil:
			return fmt.Errorf("ranking type %q sorts in memory without a comparator", typ)
		case c.RequiresAggregation && c.Aggregation == AggregateNone:
			return fmt.Errorf("ranking type %q requires aggregation but names none", typ)
		case c.FetchLimit <= 0 || c.DefaultLimit <= 0:
			return fmt.Errorf("ranking type %q has no fetch limit", typ)
		}
	}
	if len(configs) != len(Types) {
		return fmt.Errorf("configuration has %d entries for %d ranking types", len(configs), len(Types))
	}
	return nil
}
