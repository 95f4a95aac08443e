// Package cache keeps served ranking pages in Redis for a fixed window so
// repeated requests skip the store. Concurrent misses for one key share a
// single load, and a circuit breaker takes Redis out of the request path
// while it is failing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "ranking:v1:"

	// loadTimeout bounds a shared load.
	loadTimeout = 10 * time.Second

	// Invalidation triggers, used as metric labels.
	TriggerSyncEvent = "sync_event"
	TriggerManual    = "manual"
)

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// Loader computes a page on a miss.
type Loader func(ctx context.Context) (*ranking.Response, error)

// Status says where a page came from.
type Status string

const (
	StatusHit    Status = "hit"
	StatusMiss   Status = "miss"
	StatusBypass Status = "bypass"
)

type Stats struct {
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	Bypassed     int64  `json:"bypassed"`
	HitRate      string `json:"hit_rate"`
	BreakerState string `json:"breaker_state"`
	TTLSeconds   int    `json:"ttl_seconds"`
}

type Cache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	bypassed atomic.Int64
}

// New returns a cache over backend. A nil backend disables caching: every
// lookup is a bypass.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *Cache {
	c := &Cache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "ranking-cache"),
	}
	c.breaker = resilience.NewBreaker("redis", resilience.BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         15 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.CircuitBreakerState.WithLabelValues("redis").Set(float64(resilience.StateClosed))
	return c
}

// Enabled reports whether a backend is configured.
func (c *Cache) Enabled() bool {
	return c.backend != nil
}

// Key identifies one page. It expects a request that has passed type and
// genre validation; page and limit are sanitized so that every spelling of
// the same page maps to one key.
func Key(req ranking.Request, defaultLimit int) string {
	genre := req.Genre
	if genre == "" || genre == "All" {
		genre = "all"
	}
	page := ranking.SanitizePage(req.Page)
	limit := ranking.SanitizeLimit(req.Limit, defaultLimit)
	return keyPrefix + string(req.Type) + ":" + genre + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(limit)
}

// GetOrLoad returns the cached page for key or runs load and stores its
// result. Load errors are returned as is and never cached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load Loader) (*ranking.Response, Status, error) {
	if c.backend == nil {
		return c.bypass(ctx, load)
	}

	resp, err := c.get(ctx, key)
	switch {
	case err == nil:
		c.record(StatusHit)
		return resp, StatusHit, nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		return c.bypass(ctx, load)
	case !pkgredis.IsNilError(err):
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Other requests may be waiting on this load, so it must outlive the
		// caller that happened to start it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		resp, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.set(loadCtx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, StatusMiss, err
	}
	c.record(StatusMiss)
	return v.(*ranking.Response), StatusMiss, nil
}

func (c *Cache) bypass(ctx context.Context, load Loader) (*ranking.Response, Status, error) {
	c.record(StatusBypass)
	resp, err := load(ctx)
	return resp, StatusBypass, err
}

// get reads through the breaker. A missing key is not a backend failure.
func (c *Cache) get(ctx context.Context, key string) (*ranking.Response, error) {
	var data []byte
	var missing error
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			missing = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if missing != nil {
		return nil, missing
	}
	var resp ranking.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding cached page %s: %w", key, err)
	}
	return &resp, nil
}

func (c *Cache) set(ctx context.Context, key string, resp *ranking.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) record(s Status) {
	switch s {
	case StatusHit:
		c.hits.Add(1)
	case StatusMiss:
		c.misses.Add(1)
	case StatusBypass:
		c.bypassed.Add(1)
	}
	c.metrics.CacheRequestsTotal.WithLabelValues(string(s)).Inc()
}

// Invalidate drops every cached ranking page and returns how many keys were
// removed.
func (c *Cache) Invalidate(ctx context.Context, trigger string) (int64, error) {
	if c.backend == nil {
		return 0, nil
	}
	var deleted int64
	err := c.breaker.Do(func() error {
		var err error
		deleted, err = c.backend.DeleteByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating ranking cache: %w", err)
	}
	c.metrics.CacheInvalidationsTotal.WithLabelValues(trigger).Inc()
	c.logger.Info("cache invalidated", "trigger", trigger, "keys_deleted", deleted)
	return deleted, nil
}

func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:         hits,
		Misses:       misses,
		Bypassed:     c.bypassed.Load(),
		HitRate:      fmt.Sprintf("%.1f%%", rate),
		BreakerState: c.breaker.State().String(),
		TTLSeconds:   int(c.ttl / time.Second),
	}
}
