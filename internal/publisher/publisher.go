// Package publisher drains the event queue onto the transaction topic.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fraudstream/internal/codec"
	"fraudstream/internal/domain"
	"fraudstream/internal/metrics"
	"fraudstream/internal/queue"
	"fraudstream/internal/transport"
)

// Source is the consuming side of the event queue.
type Source interface {
	Take(ctx context.Context) (domain.Transaction, error)
	Len() int
}

// Publisher is the only goroutine that writes transactions to the transport,
// so messages leave in queue order and each user's events keep their order.
type Publisher struct {
	source  Source
	sink    transport.Sink
	codec   codec.Codec
	verbose bool
	sent    int64
	failed  int64
}

func New(source Source, sink transport.Sink, c codec.Codec, verbose bool) *Publisher {
	return &Publisher{source: source, sink: sink, codec: c, verbose: verbose}
}

// Run publishes until the queue is closed and drained, ctx ends, or the
// transport becomes unavailable. Only the last case returns an error.
func (p *Publisher) Run(ctx context.Context) error {
	defer func() {
		log.Printf("Publisher stopped: %d messages sent, %d failed", p.sent, p.failed)
	}()

	for {
		tx, err := p.source.Take(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		metrics.QueueDepth.Set(float64(p.source.Len()))

		if err := p.publish(ctx, tx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (p *Publisher) publish(ctx context.Context, tx domain.Transaction) error {
	data, err := codec.EncodeTransaction(p.codec, tx)
	if err != nil {
		p.failed++
		log.Printf("Dropping transaction %d: encode failed: %v", tx.TransactionID, err)
		return nil
	}

	if err := p.sink.Publish(ctx, tx.Key(), data); err != nil {
		p.failed++
		if errors.Is(err, transport.ErrUnavailable) {
			return fmt.Errorf("publish transaction %d: %w", tx.TransactionID, err)
		}
		log.Printf("Error producing transaction %d: %v", tx.TransactionID, err)
		return nil
	}

	p.sent++
	if p.verbose {
		log.Printf("Transaction %+v sent", tx)
	}
	return nil
}

func (p *Publisher) Sent() int64 { return p.sent }
