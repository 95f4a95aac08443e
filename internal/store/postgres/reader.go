// Package postgres implements store.Reader on PostgreSQL. Queries are
// compiled to parameterised SQL; only allow-listed identifiers ever reach the
// statement text.
//
// Expected schema (columns the engine reads):
//
//	places(place_id BIGINT PRIMARY KEY, name TEXT, creator_name TEXT,
//	       thumbnail_url TEXT NULL, visit_count BIGINT, favorite_count BIGINT,
//	       playing BIGINT NULL, genre TEXT NULL, first_released_at TIMESTAMPTZ NULL,
//	       last_updated_at TIMESTAMPTZ NULL, like_count BIGINT NULL,
//	       dislike_count BIGINT NULL, like_ratio DOUBLE PRECISION NULL)
//	reviews(place_id BIGINT, rating SMALLINT, ...)
//	user_mylist(place_id BIGINT, ...)
//	place_stats_history(place_id BIGINT, visit_count BIGINT, recorded_at DATE)
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
	"github.com/lib/pq"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Reader struct {
	db     Querier
	logger *slog.Logger
}

var _ store.Reader = (*Reader)(nil)

func NewReader(db Querier) *Reader {
	return &Reader{
		db:     db,
		logger: slog.Default().With("component", "postgres-reader"),
	}
}

// Build compiles q into a statement and its arguments.
func Build(q *store.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := make([]any, 0, len(q.Conditions)+2)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Projection, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(string(q.Table))

	for i, c := range q.Conditions {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		switch c.Op {
		case store.OpNotNull, store.OpIsNull:
			fmt.Fprintf(&sb, "%s %s", c.Field, c.Op)
		case store.OpIn:
			fmt.Fprintf(&sb, "%s = ANY(%s)", c.Field, next(pq.Array(c.Value.([]int64))))
		default:
			fmt.Fprintf(&sb, "%s %s %s", c.Field, c.Op, next(c.Value))
		}
	}

	if q.OrderBy != "" {
		dir := "DESC"
		if q.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s NULLS LAST", q.OrderBy, dir)
		if q.OrderBy != "place_id" {
			sb.WriteString(", place_id ASC")
		}
	}
	if q.Count > 0 {
		fmt.Fprintf(&sb, " LIMIT %s", next(q.Count))
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %s", next(q.Offset))
	}
	return sb.String(), args, nil
}

func (r *Reader) query(ctx context.Context, q *store.Query, want store.Table) (*sql.Rows, error) {
	if q.Table != want {
		return nil, fmt.Errorf("query for %s sent to %s reader", q.Table, want)
	}
	stmt, args, err := Build(q)
	if err != nil {
		return nil, fmt.Errorf("building %s query: %w", want, err)
	}
	r.logger.Debug("executing query", "table", want, "sql", stmt, "args", len(args))
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", want, err)
	}
	return rows, nil
}

func (r *Reader) Places(ctx context.Context, q *store.Query) ([]model.Place, error) {
	rows, err := r.query(ctx, q, store.TablePlaces)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		var p model.Place
		dest := make([]any, len(q.Projection))
		for i, col := range q.Projection {
			dest[i] = placeDest(&p, col)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning place row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating place rows: %w", err)
	}
	return places, nil
}

func (r *Reader) Reviews(ctx context.Context, q *store.Query) ([]model.Review, error) {
	q.Select("place_id", "rating")
	rows, err := r.query(ctx, q, store.TableReviews)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.PlaceID, &rv.Rating); err != nil {
			return nil, fmt.Errorf("scanning review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating review rows: %w", err)
	}
	return reviews, nil
}

func (r *Reader) Watchlist(ctx context.Context, q *store.Query) ([]model.WatchlistEntry, error) {
	q.Select("place_id")
	rows, err := r.query(ctx, q, store.TableWatchlist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.WatchlistEntry
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.PlaceID); err != nil {
			return nil, fmt.Errorf("scanning watchlist row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watchlist rows: %w", err)
	}
	return entries, nil
}

func (r *Reader) Snapshots(ctx context.Context, q *store.Query) ([]model.StatsSnapshot, error) {
	q.Select("place_id", "visit_count", "recorded_at")
	rows, err := r.query(ctx, q, store.TableSnapshots)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []model.StatsSnapshot
	for rows.Next() {
		var (
			h  model.StatsSnapshot
			at time.Time
		)
		if err := rows.Scan(&h.PlaceID, &h.VisitCount, &at); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		h.RecordedAt = at.Format(time.DateOnly)
		snapshots = append(snapshots, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

// placeDest returns the scan target for col. Nullable columns scan into the
// pointer fields directly; database/sql leaves them nil on NULL.
func placeDest(p *model.Place, col string) any {
	switch col {
	case "place_id":
		return &p.PlaceID
	case "name":
		return &p.Name
	case "creator_name":
		return &p.CreatorName
	case "thumbnail_url":
		return &p.ThumbnailURL
	case "visit_count":
		return &p.VisitCount
	case "favorite_count":
		return &p.FavoriteCount
	case "playing":
		return &p.Playing
	case "genre":
		return &p.Genre
	case "first_released_at":
		return &p.FirstReleasedAt
	case "last_updated_at":
		return &p.LastUpdatedAt
	case "like_count":
		return &p.LikeCount
	case "dislike_count":
		return &p.DislikeCount
	case "like_ratio":
		return &p.LikeRatio
	}
	// Validate has already rejected anything else.
	return new(any)
}
