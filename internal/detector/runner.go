package detector

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fraudstream/internal/codec"
	"fraudstream/internal/dedup"
	"fraudstream/internal/domain"
	"fraudstream/internal/metrics"
	"fraudstream/internal/transport"
)

// Runner feeds transactions from the transport through a Detector and
// publishes the resulting alerts, one message at a time.
type Runner struct {
	Source   transport.Source
	Alerts   transport.Sink
	Codec    codec.Codec
	Guard    dedup.Guard
	Detector *Detector
	Verbose  bool

	processed int64
	alerts    int64
}

// Run blocks until ctx is cancelled (returns nil) or the transport becomes
// unavailable (returns an error wrapping transport.ErrUnavailable).
func (r *Runner) Run(ctx context.Context) error {
	if r.Guard == nil {
		r.Guard = dedup.Noop{}
	}
	defer func() {
		log.Printf("Detector stopped: %d transactions processed, %d alerts, %d users tracked",
			r.processed, r.alerts, r.Detector.Users())
	}()

	for {
		msg, err := r.Source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		if err := r.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (r *Runner) handle(ctx context.Context, msg transport.Message) error {
	topic := msg.Topic
	tx, err := codec.DecodeTransaction(r.Codec, msg.Value)
	if err != nil {
		log.Printf("Skipping message at %s[%d]@%d: %v", topic, msg.Partition, msg.Offset, err)
		metrics.MessagesConsumed.WithLabelValues(topic, metrics.OutcomeMalformed).Inc()
		return nil
	}

	fresh, err := r.Guard.FirstSeen(ctx, msg.Value)
	if err != nil {
		log.Printf("Dedup check failed, processing anyway: %v", err)
	} else if !fresh {
		metrics.MessagesConsumed.WithLabelValues(topic, metrics.OutcomeDuplicate).Inc()
		return nil
	}

	metrics.MessagesConsumed.WithLabelValues(topic, metrics.OutcomeOK).Inc()
	if r.Verbose {
		log.Printf("Transaction: id=%d user=%d value=%.2f country=%s ts=%d",
			tx.TransactionID, tx.UserID, tx.Value, tx.Country, tx.Timestamp)
	}
	alerts := r.Detector.Process(tx)
	r.processed++
	metrics.TrackedUsers.Set(float64(r.Detector.Users()))

	for _, a := range alerts {
		if err := r.publish(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// publish sends one alert and waits for the result. Only an unavailable
// transport stops the loop; other failures lose the alert and are logged.
func (r *Runner) publish(ctx context.Context, a domain.FraudAlert) error {
	r.alerts++
	metrics.AlertsEmitted.WithLabelValues(string(a.FraudType)).Inc()
	log.Printf("[FRAUD - %s] user=%d card=%d details=%v", a.FraudType, a.UserID, a.CardID, a.Details)

	data, err := codec.EncodeAlert(r.Codec, a)
	if err != nil {
		log.Printf("Dropping alert for user %d: encode failed: %v", a.UserID, err)
		return nil
	}
	if err := r.Alerts.Publish(ctx, a.Key(), data); err != nil {
		if errors.Is(err, transport.ErrUnavailable) {
			return fmt.Errorf("publish alert: %w", err)
		}
		log.Printf("Failed to publish alert for user %d: %v", a.UserID, err)
		return nil
	}
	if r.Verbose {
		log.Printf("Alert for user %d published", a.UserID)
	}
	return nil
}
