// Package handler exposes the ranking engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/tracing"
)

// CacheStatusHeader carries hit, miss or bypass on ranking responses.
const CacheStatusHeader = "X-Cache-Status"

// Ranker is the engine as the handler sees it.
type Ranker interface {
	GetRanking(ctx context.Context, req ranking.Request) (*ranking.Response, error)
	GetPage(ctx context.Context, req ranking.Request) (*ranking.Response, error)
	Config(t ranking.Type) (ranking.Config, bool)
}

// EventTracker receives one event per answered ranking request.
type EventTracker interface {
	Track(event analytics.RankingEvent)
}

type Handler struct {
	ranker  Ranker
	cache   *cache.Cache
	tracker EventTracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires the handler. tracker may be nil.
func New(ranker Ranker, c *cache.Cache, tracker EventTracker, m *metrics.Metrics) *Handler {
	return &Handler{
		ranker:  ranker,
		cache:   c,
		tracker: tracker,
		metrics: m,
		logger:  logger.WithComponent("ranking-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ranking", h.Ranking)
	mux.HandleFunc("GET /api/v1/ranking/more", h.LoadMore)
	mux.HandleFunc("GET /api/v1/ranking/types", h.Types)
	mux.HandleFunc("GET /api/v1/ranking/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/ranking/cache/invalidate", h.CacheInvalidate)
}

// Ranking serves one page with strict validation: malformed page or limit
// values are rejected with 400.
func (h *Handler) Ranking(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// LoadMore serves the next page for infinite scrolling. Malformed page and
// limit values fall back to defaults instead of failing.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, loadMore bool) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), r.Pattern, middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx).With("component", "ranking-handler")
	defer func() {
		span.End()
		span.Log(ctx, log, slog.LevelDebug)
	}()

	req, err := parseRequest(r.URL.Query(), !loadMore)
	if err == nil {
		err = validate(req, loadMore)
	}
	if err != nil {
		h.metrics.RankingRequestsTotal.WithLabelValues(typeLabel(req.Type), "invalid").Inc()
		log.Debug("rejected ranking request", "query", r.URL.RawQuery, "error", err)
		h.writeError(w, err)
		return
	}

	cfg, _ := h.ranker.Config(req.Type)
	page := ranking.SanitizePage(req.Page)
	limit := ranking.SanitizeLimit(req.Limit, cfg.DefaultLimit)
	key := cache.Key(req, cfg.DefaultLimit)
	span.SetAttr("type", string(req.Type))
	span.SetAttr("cache_key", key)

	resp, status, err := h.cache.GetOrLoad(ctx, key, func(ctx context.Context) (*ranking.Response, error) {
		if loadMore {
			return h.ranker.GetPage(ctx, req)
		}
		return h.ranker.GetRanking(ctx, req)
	})
	latency := time.Since(start)
	span.SetAttr("cache_status", string(status))
	h.metrics.RankingLatency.WithLabelValues(string(req.Type), string(status)).Observe(latency.Seconds())

	event := analytics.RankingEvent{
		Type:        analytics.EventRankingServed,
		RankingType: string(req.Type),
		Genre:       req.Genre,
		Page:        page,
		Limit:       limit,
		CacheStatus: string(status),
		LoadMore:    loadMore,
		LatencyMs:   latency.Milliseconds(),
		Timestamp:   time.Now().UTC(),
		RequestID:   middleware.GetRequestID(ctx),
	}

	if err != nil {
		outcome := "error"
		if errors.Is(err, apperrors.ErrInvalidInput) {
			outcome = "invalid"
		}
		h.metrics.RankingRequestsTotal.WithLabelValues(string(req.Type), outcome).Inc()
		log.Error("ranking request failed", "type", req.Type, "genre", req.Genre, "error", err)
		event.Type = analytics.EventRankingFailed
		h.track(event)
		h.writeError(w, err)
		return
	}

	h.metrics.RankingRequestsTotal.WithLabelValues(string(req.Type), "ok").Inc()
	h.metrics.RankingResultsCount.WithLabelValues(string(req.Type)).Observe(float64(len(resp.Data)))
	event.Returned = len(resp.Data)
	event.HasMore = resp.HasMore
	h.track(event)

	log.Info("ranking served",
		"type", req.Type,
		"genre", req.Genre,
		"page", resp.Page,
		"returned", len(resp.Data),
		"has_more", resp.HasMore,
		"cache_status", status,
		"latency_ms", latency.Milliseconds(),
	)
	w.Header().Set(CacheStatusHeader, string(status))
	h.writeJSON(w, http.StatusOK, resp)
}

type typesResponse struct {
	Types           []ranking.Type `json:"types"`
	Genres          []string       `json:"genres"`
	DefaultType     ranking.Type   `json:"defaultType"`
	DefaultGenre    string         `json:"defaultGenre"`
	DefaultPageSize int            `json:"defaultPageSize"`
	MaxPage         int            `json:"maxPage"`
	MaxLimit        int            `json:"maxLimit"`
}

// Types lists the ranking types and genres so clients can render tabs and
// filters without hard-coding them.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	cfg, _ := h.ranker.Config(ranking.TypeOverall)
	// "all" is the lowercase alias of "All" and is not offered as its own
	// choice.
	genres := slices.DeleteFunc(slices.Clone(ranking.Genres), func(g string) bool { return g == "all" })
	h.writeJSON(w, http.StatusOK, typesResponse{
		Types:           ranking.Types,
		Genres:          genres,
		DefaultType:     ranking.TypeOverall,
		DefaultGenre:    "all",
		DefaultPageSize: cfg.DefaultLimit,
		MaxPage:         ranking.MaxPage,
		MaxLimit:        ranking.MaxLimit,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.cache.Enabled() {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if !h.cache.Enabled() {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context(), cache.TriggerManual)
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) track(event analytics.RankingEvent) {
	if h.tracker != nil {
		h.tracker.Track(event)
	}
}

// parseRequest reads type, genre, page and limit from the query string,
// applying the defaults type=overall and genre=all. In strict mode a page or
// limit that is not a number is an error; otherwise it is treated as absent.
func parseRequest(q url.Values, strict bool) (ranking.Request, error) {
	req := ranking.Request{
		Type:  ranking.Type(q.Get("type")),
		Genre: q.Get("genre"),
	}
	if req.Type == "" {
		req.Type = ranking.TypeOverall
	}
	if req.Genre == "" {
		req.Genre = "all"
	}
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"page", &req.Page},
		{"limit", &req.Limit},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if strict {
				return req, apperrors.InvalidInput("invalid %s %q: must be a number", p.name, raw)
			}
			continue
		}
		*p.dst = &v
	}
	return req, nil
}

func validate(req ranking.Request, lenient bool) error {
	if !lenient {
		return ranking.ValidateRequest(req)
	}
	if err := ranking.ValidateType(req.Type); err != nil {
		return err
	}
	return ranking.ValidateGenre(req.Genre)
}

// typeLabel keeps arbitrary client input out of metric labels.
func typeLabel(t ranking.Type) string {
	if slices.Contains(ranking.Types, t) {
		return string(t)
	}
	return "unknown"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.Message(err)})
}
