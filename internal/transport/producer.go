package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"fraudstream/internal/metrics"
)

const flushSliceMs = 100

type ProducerConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	// LingerMs and BatchSize are passed straight to librdkafka.
	LingerMs     int
	BatchSize    int
	Compression  string
	Retries      int
	FlushTimeout time.Duration
}

// Producer publishes to a single topic. Publish is synchronous: it flushes
// and waits for the delivery report before returning.
type Producer struct {
	p            *kafka.Producer
	topic        string
	flushTimeout time.Duration
	brokersDown  atomic.Bool
	closed       atomic.Bool
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("producer: no brokers configured")
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 15 * time.Second
	}
	if cfg.Compression == "" {
		cfg.Compression = "gzip"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16384
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "fraudstream"
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
		"client.id":         cfg.ClientID,
		"acks":              "all",
		"retries":           cfg.Retries,
		"batch.size":        cfg.BatchSize,
		"linger.ms":         cfg.LingerMs,
		"compression.type":  cfg.Compression,
	})
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}

	pr := &Producer{p: p, topic: cfg.Topic, flushTimeout: cfg.FlushTimeout}
	go pr.watchEvents()
	return pr, nil
}

// watchEvents handles client-level events. Delivery reports go to the
// per-call channel, so only errors show up here.
func (p *Producer) watchEvents() {
	for ev := range p.p.Events() {
		switch e := ev.(type) {
		case kafka.Error:
			if e.Code() == kafka.ErrAllBrokersDown {
				p.brokersDown.Store(true)
				log.Printf("Producer %s: all brokers are down", p.topic)
				continue
			}
			log.Printf("Producer %s: kafka error code %v: %v", p.topic, e.Code(), e)
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				log.Printf("Producer %s: late delivery failure: %v", p.topic, e.TopicPartition.Error)
			}
		}
	}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if p.closed.Load() {
		return fmt.Errorf("%w: producer closed", ErrUnavailable)
	}
	start := time.Now()
	defer func() {
		metrics.PublishDuration.WithLabelValues(p.topic).Observe(time.Since(start).Seconds())
	}()

	delivery := make(chan kafka.Event, 1)
	err := p.p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, delivery)
	if err != nil {
		return p.fail(classify(err))
	}

	// Flush pushes the message out without waiting for linger.ms.
	if err := p.flush(ctx); err != nil {
		return err
	}

	select {
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return p.fail(fmt.Errorf("unexpected delivery event %T", ev))
		}
		if m.TopicPartition.Error != nil {
			return p.fail(p.deliveryError(m.TopicPartition.Error))
		}
		p.brokersDown.Store(false)
		metrics.MessagesPublished.WithLabelValues(p.topic, metrics.OutcomeOK).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flush waits for outstanding messages in short slices so that a cancelled
// ctx is noticed while brokers are unreachable.
func (p *Producer) flush(ctx context.Context) error {
	deadline := time.Now().Add(p.flushTimeout)
	for p.p.Flush(flushSliceMs) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			break
		}
	}
	return ctx.Err()
}

// deliveryError treats a timed-out delivery while every broker is down as
// unavailability rather than a one-off failure.
func (p *Producer) deliveryError(err error) error {
	err = classify(err)
	var kerr kafka.Error
	if p.brokersDown.Load() && errors.As(err, &kerr) && kerr.Code() == kafka.ErrMsgTimedOut {
		return fmt.Errorf("%w: %v", ErrUnavailable, kerr)
	}
	return err
}

func (p *Producer) fail(err error) error {
	metrics.MessagesPublished.WithLabelValues(p.topic, metrics.OutcomeError).Inc()
	return err
}

// Close flushes outstanding messages and releases the client.
func (p *Producer) Close() {
	if p.closed.Swap(true) {
		return
	}
	if n := p.p.Flush(int(p.flushTimeout / time.Millisecond)); n > 0 {
		log.Printf("Producer %s: %d messages still queued at close", p.topic, n)
	}
	p.p.Close()
}
