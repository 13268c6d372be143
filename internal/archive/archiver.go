package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fraudstream/internal/codec"
	"fraudstream/internal/domain"
	"fraudstream/internal/metrics"
	"fraudstream/internal/transport"
)

type Writer interface {
	InsertAlerts(ctx context.Context, alerts []domain.FraudAlert) (int64, error)
}

// Archiver batches alerts from the alert topic into a Writer. A batch is
// written when it reaches BatchSize or when FlushInterval passes without a
// new message.
type Archiver struct {
	Source        transport.Source
	Writer        Writer
	Codec         codec.Codec
	BatchSize     int
	FlushInterval time.Duration

	batch    []domain.FraudAlert
	archived int64
}

func (a *Archiver) Run(ctx context.Context) error {
	if a.BatchSize <= 0 {
		a.BatchSize = 100
	}
	if a.FlushInterval <= 0 {
		a.FlushInterval = 2 * time.Second
	}
	defer func() {
		log.Printf("Archiver stopped: %d alerts archived", a.archived)
	}()

	for {
		rctx, cancel := context.WithTimeout(ctx, a.FlushInterval)
		msg, err := a.Source.Receive(rctx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				// Write what we have with a fresh context; ctx is already done.
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return a.flush(flushCtx)
			case errors.Is(err, context.DeadlineExceeded):
				if err := a.flush(ctx); err != nil {
					return err
				}
				continue
			default:
				if ferr := a.flush(ctx); ferr != nil {
					log.Printf("Archiver: final flush failed: %v", ferr)
				}
				return fmt.Errorf("receive: %w", err)
			}
		}

		alert, err := codec.DecodeAlert(a.Codec, msg.Value)
		if err != nil {
			log.Printf("Archiver: skipping %s[%d]@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			metrics.MessagesConsumed.WithLabelValues(msg.Topic, metrics.OutcomeMalformed).Inc()
			continue
		}
		metrics.MessagesConsumed.WithLabelValues(msg.Topic, metrics.OutcomeOK).Inc()

		a.batch = append(a.batch, alert)
		if len(a.batch) >= a.BatchSize {
			if err := a.flush(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *Archiver) flush(ctx context.Context) error {
	if len(a.batch) == 0 {
		return nil
	}
	n, err := a.Writer.InsertAlerts(ctx, a.batch)
	if err != nil {
		return fmt.Errorf("archive %d alerts: %w", len(a.batch), err)
	}
	a.archived += n
	metrics.AlertsArchived.Add(float64(n))
	a.batch = a.batch[:0]
	return nil
}

// Archived is the number of alerts written so far.
func (a *Archiver) Archived() int64 { return a.archived }
