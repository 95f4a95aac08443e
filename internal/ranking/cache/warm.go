package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/kafka"
	"golang.org/x/sync/errgroup"
)

// warmConcurrency bounds the store reads issued by one warm-up.
const warmConcurrency = 4

// PageLoader computes a ranking page for a request.
type PageLoader func(ctx context.Context, req ranking.Request) (*ranking.Response, error)

// PlacesSynced is published by the sync job once it has refreshed the places
// table.
type PlacesSynced struct {
	Source   string    `json:"source"`
	Places   int       `json:"places"`
	SyncedAt time.Time `json:"synced_at"`
}

// Warm loads the first page of every ranking type without a genre filter,
// so the most requested pages are cached again right after an invalidation.
// It returns the number of pages loaded.
func (c *Cache) Warm(ctx context.Context, defaultLimit int, load PageLoader) (int, error) {
	if c.backend == nil {
		return 0, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, t := range ranking.Types {
		req := ranking.Request{Type: t, Genre: "all"}
		g.Go(func() error {
			_, _, err := c.GetOrLoad(gctx, Key(req, defaultLimit), func(ctx context.Context) (*ranking.Response, error) {
				return load(ctx, req)
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(ranking.Types), nil
}

// SyncHandler consumes PlacesSynced events: it drops the cached pages and,
// when load is non-nil, warms them again. Failures are logged and the event
// is acknowledged; stale pages expire with the TTL anyway.
func (c *Cache) SyncHandler(defaultLimit int, load PageLoader) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[PlacesSynced](value)
		if err != nil {
			c.logger.Error("discarding malformed sync event", "error", err)
			return nil
		}
		c.logger.Info("places synced",
			"source", event.Source,
			"places", event.Places,
			"synced_at", event.SyncedAt,
		)
		if _, err := c.Invalidate(ctx, TriggerSyncEvent); err != nil {
			c.logger.Error("invalidation after sync failed", "error", err)
			return nil
		}
		if load == nil {
			return nil
		}
		if n, err := c.Warm(ctx, defaultLimit, load); err != nil {
			c.logger.Warn("cache warm-up failed", "error", err)
		} else {
			c.logger.Info("cache warmed", "pages", n)
		}
		return nil
	}
}
