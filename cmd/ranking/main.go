package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking/cache"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ranking/handler"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store/memory"
	pgstore "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/internal/store/postgres"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	fixtures := flag.String("fixtures", "", "serve from a JSON fixture file instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, *fixtures); err != nil {
		slog.Error("ranking service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ranking service stopped")
}

func run(cfg *config.Config, fixtures string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting ranking service", "port", cfg.Server.Port, "fixtures", fixtures != "")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	checker := health.NewChecker(2 * time.Second)

	var reader store.Reader
	if fixtures != "" {
		mem, err := memory.LoadFile(fixtures)
		if err != nil {
			return err
		}
		reader = mem
		checker.Register("store", func(context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: "fixtures"}
		})
	} else {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		reader = pgstore.NewReader(db.DB)
		checker.Register("store", health.Ping(health.StatusDown, db.Ping))
		slog.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	processor, err := ranking.NewProcessor(reader, ranking.WithThresholds(ranking.ThresholdsFromConfig(cfg.Ranking)))
	if err != nil {
		return fmt.Errorf("building ranking processor: %w", err)
	}

	// backend stays a nil interface when Redis is off so the cache bypasses.
	var backend cache.Backend
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, ranking cache disabled", "error", err)
			checker.Register("redis", func(context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			})
		} else {
			defer client.Close()
			backend = client
			checker.Register("redis", health.Ping(health.StatusDegraded, client.Ping))
			slog.Info("ranking cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Ranking.CacheTTL)
		}
	}
	rankCache := cache.New(backend, cfg.Ranking.CacheTTL, m)

	var wg sync.WaitGroup
	defer wg.Wait()
	consume := func(c *kafka.Consumer) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Start(ctx); err != nil {
				slog.Error("kafka consumer error", "error", err)
			}
		}()
	}

	topics := cfg.Kafka.Topics
	aggregator := analytics.NewAggregator(topics.RankingEvents, m)
	var tracker handler.EventTracker = aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, topics.RankingEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{}, m)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector

		consume(kafka.NewConsumer(cfg.Kafka, topics.RankingEvents, "analytics", aggregator.HandleEvent()))
		consume(kafka.NewConsumer(cfg.Kafka, topics.PlacesSynced, "cache",
			rankCache.SyncHandler(cfg.Ranking.DefaultPageSize, processor.GetRanking)))
		slog.Info("kafka wired", "brokers", cfg.Kafka.Brokers, "events", topics.RankingEvents, "sync", topics.PlacesSynced)
	}

	if rankCache.Enabled() {
		if n, err := rankCache.Warm(ctx, cfg.Ranking.DefaultPageSize, processor.GetRanking); err != nil {
			slog.Warn("initial cache warm-up failed", "error", err)
		} else {
			slog.Info("cache warmed", "pages", n)
		}
	}

	mux := http.NewServeMux()
	handler.New(processor, rankCache, tracker, m).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.AllowOrigins
	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(cors),
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		go limiter.Run(ctx, cfg.RateLimit.Window)
		mws = append(mws, middleware.RateLimit(limiter, m))
	}
	// Metrics sits next to the mux so it sees the matched route pattern.
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout), middleware.Metrics(m))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ranking service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
