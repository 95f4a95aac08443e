package ranking

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

type options struct {
	thresholds Thresholds
	now        func() time.Time
}

type Option func(*options)

func WithThresholds(t Thresholds) Option {
	return func(o *options) { o.thresholds = t }
}

// WithClock replaces time.Now for the trend snapshot date.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Processor runs ranking requests against a store.Reader. It holds no
// per-request state and is safe for concurrent use.
type Processor struct {
	reader     store.Reader
	agg        *Aggregator
	configs    map[Type]Config
	thresholds Thresholds
}

func NewProcessor(reader store.Reader, opts ...Option) (*Processor, error) {
	o := options{thresholds: DefaultThresholds(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	configs := Configs(o.thresholds)
	if err := checkConfigs(configs); err != nil {
		return nil, err
	}
	return &Processor{
		reader:     reader,
		agg:        NewAggregator(reader, o.now),
		configs:    configs,
		thresholds: o.thresholds,
	}, nil
}

// Config returns the configuration entry for t.
func (p *Processor) Config(t Type) (Config, bool) {
	c, ok := p.configs[t]
	return c, ok
}

// GetRanking validates req strictly and returns the requested page. Invalid
// input fails with apperrors.ErrInvalidInput before the store is touched;
// store failures come back as apperrors.ErrDatabase.
func (p *Processor) GetRanking(ctx context.Context, req Request) (*Response, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	return p.process(ctx, req)
}

// GetPage is the incremental "load more" entry point. Type and genre are
// still validated, but malformed page and limit values are clamped instead
// of rejected.
func (p *Processor) GetPage(ctx context.Context, req Request) (*Response, error) {
	if err := ValidateType(req.Type); err != nil {
		return nil, err
	}
	if err := ValidateGenre(req.Genre); err != nil {
		return nil, err
	}
	return p.process(ctx, req)
}

func (p *Processor) process(ctx context.Context, req Request) (*Response, error) {
	cfg, ok := p.configs[req.Type]
	if !ok {
		return nil, apperrors.InvalidInput("ranking type %q has no configuration", req.Type)
	}
	page := SanitizePage(req.Page)
	limit := SanitizeLimit(req.Limit, cfg.DefaultLimit)

	ctx, span := tracing.StartChildSpan(ctx, "ranking.process")
	defer span.End()
	span.SetAttr("type", string(cfg.Type))
	span.SetAttr("page", page)
	span.SetAttr("limit", limit)

	log := logger.FromContext(ctx).With("component", "ranking", "type", cfg.Type)
	log.Debug("processing ranking",
		"genre", req.Genre,
		"page", page,
		"limit", limit,
		"aggregation", cfg.RequiresAggregation,
		"sort_method", cfg.SortMethod,
	)

	var (
		resp *Response
		err  error
	)
	if cfg.RequiresAggregation {
		resp, err = p.aggregationRanking(ctx, cfg, req.Genre, page, limit)
	} else {
		resp, err = p.directRanking(ctx, cfg, req.Genre, page, limit)
	}
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.Database(err)
		}
		log.Error("ranking failed", "error", err)
		return nil, err
	}
	span.SetAttr("returned", len(resp.Data))
	return resp, nil
}

func (p *Processor) directRanking(ctx context.Context, cfg Config, genre string, page, limit int) (*Response, error) {
	q := ApplyFilters(store.From(cfg.DataSource), cfg.Filters)
	if filtersGenre(genre) {
		q.Eq("genre", genre)
	}

	if cfg.SortMethod == SortDB {
		offset := (page - 1) * limit
		q.Order(cfg.SortKey, false).Range(offset, offset+limit-1)
		rows, err := p.reader.Places(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetching %s page: %w", cfg.Type, err)
		}
		if rows == nil {
			rows = []model.Place{}
		}
		return &Response{Data: rows, Page: page, HasMore: len(rows) == limit}, nil
	}

	q.Limit(cfg.FetchLimit)
	if cfg.WindowKey != "" {
		q.Order(cfg.WindowKey, false)
	}

	var (
		rows    []model.Place
		reviews map[int64]ReviewStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = p.reader.Places(gctx, q)
		if err != nil {
			return fmt.Errorf("fetching %s candidates: %w", cfg.Type, err)
		}
		return nil
	})
	if cfg.Enrichment == EnrichReviews {
		g.Go(func() error {
			var err error
			reviews, err = p.agg.AggregateReviews(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Response{Data: []model.Place{}, Page: page}, nil
	}

	switch cfg.Enrichment {
	case EnrichTrend:
		if err := p.attachTrend(ctx, rows); err != nil {
			return nil, err
		}
	case EnrichReviews:
		for i := range rows {
			attachReviewStats(&rows[i], reviews[rows[i].PlaceID])
		}
	}

	Sort(rows, cfg.Compare)
	return paginate(rows, page, limit), nil
}

func (p *Processor) attachTrend(ctx context.Context, rows []model.Place) error {
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].PlaceID
	}
	yesterday, err := p.agg.YesterdaySnapshots(ctx, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		score := TrendScore(rows[i].VisitCount, yesterday[rows[i].PlaceID])
		rows[i].TrendScore = &score
	}
	return nil
}

func (p *Processor) aggregationRanking(ctx context.Context, cfg Config, genre string, page, limit int) (*Response, error) {
	var (
		ids   []int64
		merge func(*model.Place)
	)
	switch cfg.Aggregation {
	case AggregateReviewAverage, AggregateReviewCount:
		stats, err := p.agg.AggregateReviews(ctx)
		if err != nil {
			return nil, err
		}
		if cfg.Aggregation == AggregateReviewAverage {
			minReviews := p.thresholds.RatingMinReviews
			ids = topIDs(stats, cfg.FetchLimit,
				func(s ReviewStats) bool { return s.Count >= minReviews },
				func(a, b ReviewStats) int {
					if c := cmp.Compare(b.Average(), a.Average()); c != 0 {
						return c
					}
					return cmp.Compare(b.Count, a.Count)
				})
		} else {
			ids = topIDs(stats, cfg.FetchLimit, nil, func(a, b ReviewStats) int {
				return cmp.Compare(b.Count, a.Count)
			})
		}
		merge = func(pl *model.Place) { attachReviewStats(pl, stats[pl.PlaceID]) }

	case AggregateWatchlist:
		counts, err := p.agg.AggregateWatchlist(ctx)
		if err != nil {
			return nil, err
		}
		ids = topIDs(counts, cfg.FetchLimit, nil, func(a, b int) int { return cmp.Compare(b, a) })
		merge = func(pl *model.Place) {
			n := counts[pl.PlaceID]
			pl.WatchlistCount = &n
		}

	default:
		return nil, fmt.Errorf("ranking type %q has no aggregation", cfg.Type)
	}

	if len(ids) == 0 {
		return &Response{Data: []model.Place{}, Page: page}, nil
	}

	// Only the genre narrows the aggregated ids; cfg.Filters apply to the
	// direct paths.
	q := store.From(store.TablePlaces).In("place_id", ids)
	if filtersGenre(genre) {
		q.Eq("genre", genre)
	}
	rows, err := p.reader.Places(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching %s candidates: %w", cfg.Type, err)
	}
	for i := range rows {
		merge(&rows[i])
	}
	// The store returns the candidates in its own order and the genre filter
	// may have dropped some, so the merged set is sorted again.
	Sort(rows, cfg.Compare)
	return paginate(rows, page, limit), nil
}

func attachReviewStats(p *model.Place, s ReviewStats) {
	avg, n := s.Average(), s.Count
	p.AverageRating = &avg
	p.ReviewCount = &n
}

// topIDs returns up to n keys of m that pass keep, ordered by rank and then
// by ascending id.
func topIDs[V any](m map[int64]V, n int, keep func(V) bool, rank func(a, b V) int) []int64 {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b int64) int {
		if c := rank(m[a], m[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// paginate slices the sorted candidate set. TotalCount is the size of the
// whole set, which is known on these paths.
func paginate(rows []model.Place, page, limit int) *Response {
	total := len(rows)
	offset := (page - 1) * limit
	data := []model.Place{}
	if offset < total {
		data = rows[offset:min(offset+limit, total)]
	}
	return &Response{
		Data:       data,
		Page:       page,
		HasMore:    total > offset+limit,
		TotalCount: &total,
	}
}
