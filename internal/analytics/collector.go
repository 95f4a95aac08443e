package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/metrics"
)

// Publisher is the producer side of the events topic.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
	Topic() string
}

type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

func (c CollectorConfig) withDefaults() CollectorConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = 10000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 2 * time.Second
	}
	return c
}

// Collector buffers events and publishes them in batches, either when a
// batch is full or when the flush interval passes. Track never blocks: when
// the buffer is full the event is dropped.
type Collector struct {
	publisher Publisher
	cfg       CollectorConfig
	eventCh   chan RankingEvent
	done      chan struct{}
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewCollector(publisher Publisher, cfg CollectorConfig, m *metrics.Metrics) *Collector {
	cfg = cfg.withDefaults()
	return &Collector{
		publisher: publisher,
		cfg:       cfg,
		eventCh:   make(chan RankingEvent, cfg.BufferSize),
		done:      make(chan struct{}),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
	}
}

// Start runs the flush loop until ctx is cancelled or Close is called.
// Pending events are flushed with a short deadline on the way out.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.FlushInterval)
		defer ticker.Stop()

		batch := make([]RankingEvent, 0, c.cfg.BatchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.final(batch)
					return
				}
				batch = append(batch, event)
				if len(batch) >= c.cfg.BatchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.final(c.drain(batch))
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"topic", c.publisher.Topic(),
		"buffer_size", c.cfg.BufferSize,
		"batch_size", c.cfg.BatchSize,
	)
}

func (c *Collector) Track(event RankingEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.metrics.EventsTotal.WithLabelValues(c.publisher.Topic(), "dropped").Inc()
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. Track must
// not be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drain(batch []RankingEvent) []RankingEvent {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
}

func (c *Collector) final(batch []RankingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

// flush publishes batch and returns an empty slice to reuse. A failed batch
// is dropped; the events are statistics, not records.
func (c *Collector) flush(ctx context.Context, batch []RankingEvent) []RankingEvent {
	if len(batch) == 0 {
		return batch
	}
	events := make([]kafka.Event, len(batch))
	for i, e := range batch {
		events[i] = kafka.Event{Key: e.Key(), Value: e}
	}
	topic := c.publisher.Topic()
	if err := c.publisher.PublishBatch(ctx, events); err != nil {
		c.metrics.EventsTotal.WithLabelValues(topic, "failed").Add(float64(len(batch)))
		c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
	} else {
		c.metrics.EventsTotal.WithLabelValues(topic, "published").Add(float64(len(batch)))
		c.logger.Debug("batch flushed", "events", len(batch))
	}
	return batch[:0]
}
