package ranking

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/config"
)

func TestConfigsCoverEveryType(t *testing.T) {
	configs := Configs(DefaultThresholds())
	if err := checkConfigs(configs); err != nil {
		t.Fatal(err)
	}
	delete(configs, TypeHidden)
	if err := checkConfigs(configs); err == nil {
		t.Error("checkConfigs accepted a table with a missing type")
	}
}

func TestConfigFamilies(t *testing.T) {
	configs := Configs(DefaultThresholds())

	aggregated := map[Type]store.Table{
		TypeRating:  store.TableReviews,
		TypeReviews: store.TableReviews,
		TypeMylist:  store.TableWatchlist,
	}
	for typ, c := range configs {
		if table, ok := aggregated[typ]; ok {
			if !c.RequiresAggregation || c.DataSource != table || c.FetchLimit != AggregationTopCount {
				t.Errorf("%s: %+v", typ, c)
			}
			continue
		}
		if c.RequiresAggregation || c.DataSource != store.TablePlaces {
			t.Errorf("%s should be a direct ranking on places", typ)
		}
		if c.SortMethod == SortJS && c.FetchLimit != JSFetchSize {
			t.Errorf("%s: fetch window = %d, want %d", typ, c.FetchLimit, JSFetchSize)
		}
	}
}

func TestQualityFloor(t *testing.T) {
	withoutFloor := map[Type]bool{
		TypeFavorites:     true,
		TypeFavoriteRatio: true,
		TypeLikeRatio:     true,
		TypeMylist:        true,
	}
	for typ, c := range Configs(DefaultThresholds()) {
		has := false
		for _, f := range c.Filters {
			if f.Field == "favorite_count" && f.Op == OpGte && f.Value == int64(MinFavoriteCount) {
				has = true
			}
		}
		if has == withoutFloor[typ] {
			t.Errorf("%s: favorite floor present = %v", typ, has)
		}
	}
}

func TestThresholdsFromConfig(t *testing.T) {
	th := ThresholdsFromConfig(config.RankingConfig{MinFavoriteCount: 10, HiddenMinRating: 4.0})
	if th.MinFavoriteCount != 10 || th.HiddenMinRating != 4.0 {
		t.Errorf("overrides not applied: %+v", th)
	}
	if th.RatingMinReviews != RatingMinReviews || th.JSFetchSize != JSFetchSize {
		t.Errorf("defaults not kept: %+v", th)
	}

	c := Configs(th)[TypeOverall]
	if c.Filters[0].Value != int64(10) {
		t.Errorf("overall floor = %v, want 10", c.Filters[0].Value)
	}
}
