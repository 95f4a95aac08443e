package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking/cache"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []analytics.RankingEvent
}

func (r *recorder) Track(e analytics.RankingEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

type fixture struct {
	store   *memory.Store
	metrics *metrics.Metrics
	events  *recorder
	mux     *http.ServeMux
}

func newFixture(t *testing.T, places int) *fixture {
	t.Helper()
	s := memory.New()
	for i := 1; i <= places; i++ {
		s.AddPlaces(model.Place{
			PlaceID:       int64(i),
			Name:          "place",
			VisitCount:    int64(1000 + i*10),
			FavoriteCount: int64(100 + i),
			Genre:         model.Ptr([]string{"RPG", "Horror"}[i%2]),
		})
	}
	p, err := ranking.NewProcessor(s, ranking.WithClock(func() time.Time {
		return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	events := &recorder{}
	mux := http.NewServeMux()
	New(p, cache.New(nil, time.Minute, m), events, m).Register(mux)
	return &fixture{store: s, metrics: m, events: events, mux: mux}
}

func (f *fixture) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: decoding %q: %v", target, rec.Body.String(), err)
	}
	return rec, body
}

func ids(body map[string]any) []int64 {
	data, _ := body["data"].([]any)
	out := make([]int64, len(data))
	for i, d := range data {
		out[i] = int64(d.(map[string]any)["place_id"].(float64))
	}
	return out
}

func TestRankingDefaults(t *testing.T) {
	f := newFixture(t, 60)
	rec, body := f.get(t, "/api/v1/ranking")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	got := ids(body)
	if len(got) != 50 || got[0] != 60 || got[49] != 11 {
		t.Errorf("default page ids = %v", got)
	}
	if rec.Header().Get(CacheStatusHeader) != "bypass" {
		t.Errorf("%s = %q", CacheStatusHeader, rec.Header().Get(CacheStatusHeader))
	}
	if body["page"] != 1.0 || body["hasMore"] != true {
		t.Errorf("page = %v, hasMore = %v", body["page"], body["hasMore"])
	}
	if got := testutil.ToFloat64(f.metrics.RankingRequestsTotal.WithLabelValues("overall", "ok")); got != 1 {
		t.Errorf("ok counter = %v", got)
	}

	if len(f.events.events) != 1 {
		t.Fatalf("tracked %d events", len(f.events.events))
	}
	e := f.events.events[0]
	if e.Type != analytics.EventRankingServed || e.RankingType != "overall" || e.Genre != "all" ||
		e.Returned != 50 || !e.HasMore || e.CacheStatus != "bypass" || e.LoadMore {
		t.Errorf("event = %+v", e)
	}
}

func TestRankingGenreAndPaging(t *testing.T) {
	f := newFixture(t, 60)
	_, body := f.get(t, "/api/v1/ranking?type=overall&genre=Horror&page=2&limit=10")
	got := ids(body)
	// Odd ids are Horror; 59..41 fill page one.
	want := []int64{39, 37, 35, 33, 31, 29, 27, 25, 23, 21}
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func TestRankingRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		query   string
		wantErr string
	}{
		{"type=bogus", "invalid ranking type"},
		{"genre=Anime", "invalid genre"},
		{"page=0", "invalid page"},
		{"page=1.5", "invalid page"},
		{"page=1001", "invalid page"},
		{"limit=101", "invalid limit"},
		{"limit=0", "invalid limit"},
		{"page=abc", "must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f := newFixture(t, 5)
			rec, body := f.get(t, "/api/v1/ranking?"+tt.query)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if msg, _ := body["error"].(string); !strings.Contains(msg, tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantErr)
			}
			if n := f.store.Reads(store.TablePlaces); n != 0 {
				t.Errorf("store was read %d times for invalid input", n)
			}
			if len(f.events.events) != 0 {
				t.Error("invalid request was tracked")
			}
		})
	}

	f := newFixture(t, 1)
	f.get(t, "/api/v1/ranking?type=bogus")
	if got := testutil.ToFloat64(f.metrics.RankingRequestsTotal.WithLabelValues("unknown", "invalid")); got != 1 {
		t.Errorf("invalid counter = %v", got)
	}
}

func TestLoadMoreIsLenient(t *testing.T) {
	f := newFixture(t, 30)
	rec, body := f.get(t, "/api/v1/ranking/more?type=favorites&page=abc&limit=1000")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	if body["page"] != 1.0 || len(ids(body)) != 30 {
		t.Errorf("page = %v, returned %d", body["page"], len(ids(body)))
	}
	if !f.events.events[0].LoadMore || f.events.events[0].Limit != ranking.MaxLimit {
		t.Errorf("event = %+v", f.events.events[0])
	}

	rec, _ = f.get(t, "/api/v1/ranking/more?type=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("load more with bad type: status = %d, want 400", rec.Code)
	}
}

func TestRankingDatabaseError(t *testing.T) {
	f := newFixture(t, 5)
	f.store.Fail(store.TablePlaces, errors.New("connection reset by peer"))

	rec, body := f.get(t, "/api/v1/ranking?type=newest")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "connection reset by peer") {
		t.Errorf("error = %q", msg)
	}
	if got := testutil.ToFloat64(f.metrics.RankingRequestsTotal.WithLabelValues("newest", "error")); got != 1 {
		t.Errorf("error counter = %v", got)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != analytics.EventRankingFailed {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestTypes(t *testing.T) {
	f := newFixture(t, 0)
	rec, body := f.get(t, "/api/v1/ranking/types")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	types, _ := body["types"].([]any)
	genres, _ := body["genres"].([]any)
	if len(types) != 12 || types[0] != "overall" {
		t.Errorf("types = %v", types)
	}
	if len(genres) != len(ranking.Genres)-1 || genres[0] != "All" {
		t.Errorf("genres = %v", genres)
	}
	if body["defaultPageSize"] != 50.0 || body["maxLimit"] != 100.0 {
		t.Errorf("defaults = %v", body)
	}
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	f := newFixture(t, 0)
	_, body := f.get(t, "/api/v1/ranking/cache/stats")
	if body["status"] != "disabled" {
		t.Errorf("stats = %v", body)
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ranking/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d, want 503", rec.Code)
	}
}

func TestParseRequest(t *testing.T) {
	q := map[string][]string{"type": {"hidden"}, "page": {"3"}, "limit": {"2.5"}}
	req, err := parseRequest(q, true)
	if err != nil {
		t.Fatal(err)
	}
	if req.Type != ranking.TypeHidden || req.Genre != "all" || *req.Page != 3 || *req.Limit != 2.5 {
		t.Errorf("parseRequest() = %+v", req)
	}

	req, err = parseRequest(map[string][]string{"limit": {"x"}}, false)
	if err != nil || req.Limit != nil || req.Type != ranking.TypeOverall {
		t.Errorf("lenient parseRequest() = %+v, %v", req, err)
	}
}
