package store

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/model"
)

// Reader executes queries against one table each. Implementations must apply
// Query.Validate and honour every field of the query; when OrderBy is set,
// rows are ordered by it with NULLs last and ties broken by ascending
// place_id.
type Reader interface {
	Places(ctx context.Context, q *Query) ([]model.Place, error)
	Reviews(ctx context.Context, q *Query) ([]model.Review, error)
	Watchlist(ctx context.Context, q *Query) ([]model.WatchlistEntry, error)
	Snapshots(ctx context.Context, q *Query) ([]model.StatsSnapshot, error)
}
