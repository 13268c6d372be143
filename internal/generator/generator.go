// Package generator produces the synthetic transaction load: one steady
// stream of valid transactions plus three fraud patterns, all interleaved
// onto a single bounded queue.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fraudstream/internal/domain"
	"fraudstream/internal/metrics"
	"fraudstream/internal/queue"
)

// Emitter names, used for logs and metric labels.
const (
	EmitterValid            = "valid"
	EmitterHighFrequency    = "high_frequency"
	EmitterHighValue        = "high_value"
	EmitterDifferentCountry = "different_country"
)

// Sink receives generated transactions. *queue.EventQueue satisfies it.
type Sink interface {
	Put(ctx context.Context, tx domain.Transaction) error
}

type Config struct {
	// TransactionsPerSecond is the rate of the valid emitter.
	TransactionsPerSecond float64
	// FraudFrequency scales the valid interval into the fraud burst cadence.
	FraudFrequency float64
	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed int64
}

type Generator struct {
	cfg   Config
	sink  Sink
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	count atomic.Int64
}

func New(cfg Config, sink Sink) (*Generator, error) {
	if cfg.TransactionsPerSecond <= 0 {
		return nil, fmt.Errorf("transactions per second must be positive, got %v", cfg.TransactionsPerSecond)
	}
	if cfg.FraudFrequency <= 0 {
		return nil, fmt.Errorf("fraud frequency must be positive, got %v", cfg.FraudFrequency)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	g := &Generator{cfg: cfg, sink: sink, now: time.Now, sleep: sleepContext}
	if g.validInterval() <= 0 || g.fraudInterval() <= 0 {
		return nil, fmt.Errorf("rate %v tx/s with fraud frequency %v leaves no time between transactions",
			cfg.TransactionsPerSecond, cfg.FraudFrequency)
	}
	return g, nil
}

// Count is the number of transactions accepted by the sink so far.
func (g *Generator) Count() int64 { return g.count.Load() }

func (g *Generator) validInterval() time.Duration {
	return time.Duration(float64(time.Second) / g.cfg.TransactionsPerSecond)
}

func (g *Generator) fraudInterval() time.Duration {
	return time.Duration(float64(g.validInterval()) * g.cfg.FraudFrequency)
}

// Run starts all four emitters and blocks until ctx is cancelled or the sink
// is closed. Shutdown is not an error; any other emitter failure is.
func (g *Generator) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.runValid(ctx, newFactory(g.cfg.Seed, g.now))
	})

	patterns := []struct {
		name  string
		build func(f *factory) []domain.Transaction
	}{
		{EmitterHighFrequency, (*factory).HighFrequencyBurst},
		{EmitterHighValue, (*factory).HighValueRamp},
		{EmitterDifferentCountry, (*factory).DifferentCountryPair},
	}
	for i, p := range patterns {
		p := p
		f := newFactory(g.cfg.Seed+int64(i)+1, g.now)
		jitter := rand.New(rand.NewSource(g.cfg.Seed - int64(i) - 1))
		eg.Go(func() error {
			return g.runPattern(ctx, p.name, f, jitter, p.build)
		})
	}

	log.Printf("Generator started: %.2f tx/s, fraud cadence %s", g.cfg.TransactionsPerSecond, g.fraudInterval())
	err := eg.Wait()
	log.Printf("Generator stopped after %d transactions", g.Count())
	if isShutdown(err) {
		return nil
	}
	return err
}

func (g *Generator) runValid(ctx context.Context, f *factory) error {
	ticker := time.NewTicker(g.validInterval())
	defer ticker.Stop()

	for {
		if err := g.emit(ctx, EmitterValid, f.Valid()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runPattern emits one burst after another. Before every transaction of a
// burst it waits a random duration in [cadence, 3*cadence].
func (g *Generator) runPattern(ctx context.Context, name string, f *factory, jitter *rand.Rand, build func(*factory) []domain.Transaction) error {
	cadence := g.fraudInterval()
	for {
		for _, tx := range build(f) {
			wait := cadence + time.Duration(jitter.Int63n(int64(2*cadence)+1))
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
			if err := g.emit(ctx, name, tx); err != nil {
				return err
			}
		}
	}
}

func (g *Generator) emit(ctx context.Context, emitter string, tx domain.Transaction) error {
	if err := g.sink.Put(ctx, tx); err != nil {
		return err
	}
	g.count.Add(1)
	metrics.TransactionsGenerated.WithLabelValues(emitter).Inc()
	return nil
}

func isShutdown(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, queue.ErrClosed)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
