// Package resilience holds the fault-tolerance primitives used around the
// service's optional backends: a circuit breaker for the response cache,
// backoff retry for startup connections and a timeout wrapper for readiness
// probes.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when the breaker trips and how it recovers.
// OnStateChange, if set, is called with the breaker lock released.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	HalfOpenProbes   int
	OnStateChange    func(name string, from, to State)
}

func defaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// Breaker stops calling a failing dependency after FailureThreshold
// consecutive errors and lets a limited number of probes through once the
// cooldown has elapsed.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	d := defaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = d.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = d.Cooldown
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = d.HalfOpenProbes
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Do runs fn when the breaker admits the call and records its outcome. When
// the breaker rejects the call fn is not run and the error wraps
// ErrCircuitOpen.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		wait := b.cfg.Cooldown - b.now().Sub(b.openedAt)
		if wait > 0 {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, b.name, wait.Round(time.Millisecond))
		}
		b.probes = 1
		b.transition(StateHalfOpen)
		return nil
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenProbes {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, b.name)
		}
		b.probes++
	}
	b.mu.Unlock()
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	if err == nil {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
			return
		}
		b.mu.Unlock()
		return
	}

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.openedAt = b.now()
		b.transition(StateOpen)
		return
	case b.state == StateClosed && b.failures >= b.cfg.FailureThreshold:
		b.openedAt = b.now()
		b.logger.Warn("circuit opened", "consecutive_failures", b.failures, "last_error", err)
		b.transition(StateOpen)
		return
	}
	b.mu.Unlock()
}

// transition must be called with mu held; it releases it.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if to != StateHalfOpen {
		b.probes = 0
	}
	b.mu.Unlock()

	if from == to {
		return
	}
	b.logger.Info("circuit state changed", "from", from, "to", to)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// Reset closes the breaker and clears its failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.failures = 0
	b.transition(StateClosed)
}
