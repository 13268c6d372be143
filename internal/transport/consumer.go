package transport

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"fraudstream/internal/metrics"
)

type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	OffsetReset string
	ClientID    string
	PollTimeout time.Duration
	// UnavailableAfter is how long every broker may stay down before Receive
	// gives up with ErrUnavailable.
	UnavailableAfter time.Duration
}

// Consumer reads a single topic as part of a consumer group. Offsets are
// auto-committed, so delivery is at-least-once.
type Consumer struct {
	c                *kafka.Consumer
	topic            string
	pollMs           int
	unavailableAfter time.Duration
	downSince        time.Time
}

func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("consumer: no brokers configured")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.UnavailableAfter <= 0 {
		cfg.UnavailableAfter = time.Minute
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "fraudstream"
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       strings.Join(cfg.Brokers, ","),
		"group.id":                cfg.GroupID,
		"client.id":               cfg.ClientID,
		"auto.offset.reset":       cfg.OffsetReset,
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 2000,
		"session.timeout.ms":      10000,
		"heartbeat.interval.ms":   3000,
		"max.poll.interval.ms":    300000,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	if err := c.SubscribeTopics([]string{cfg.Topic}, logRebalance); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Topic, err)
	}
	log.Printf("Consuming messages from %s as group %s", cfg.Topic, cfg.GroupID)

	return &Consumer{
		c:                c,
		topic:            cfg.Topic,
		pollMs:           int(cfg.PollTimeout / time.Millisecond),
		unavailableAfter: cfg.UnavailableAfter,
	}, nil
}

func logRebalance(c *kafka.Consumer, ev kafka.Event) error {
	switch e := ev.(type) {
	case kafka.AssignedPartitions:
		log.Printf("Partitions assigned: %s", describePartitions(e.Partitions))
	case kafka.RevokedPartitions:
		log.Printf("Partitions revoked: %s", describePartitions(e.Partitions))
	}
	return nil
}

func describePartitions(tps []kafka.TopicPartition) string {
	parts := make([]string, 0, len(tps))
	for _, tp := range tps {
		topic := ""
		if tp.Topic != nil {
			topic = *tp.Topic
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", topic, tp.Partition))
	}
	return strings.Join(parts, ", ")
}

// Receive polls until a message arrives. Per-message and transient client
// errors are logged and skipped; a fatal error or a broker outage longer
// than UnavailableAfter ends the loop with ErrUnavailable.
func (c *Consumer) Receive(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		ev := c.c.Poll(c.pollMs)
		if ev == nil {
			if err := c.checkOutage(); err != nil {
				return Message{}, err
			}
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				log.Printf("Consumer %s: message error: %v", c.topic, e.TopicPartition.Error)
				metrics.MessagesConsumed.WithLabelValues(c.topic, metrics.OutcomeError).Inc()
				continue
			}
			c.downSince = time.Time{}
			return Message{
				Topic:     c.topic,
				Key:       e.Key,
				Value:     e.Value,
				Partition: e.TopicPartition.Partition,
				Offset:    int64(e.TopicPartition.Offset),
			}, nil
		case kafka.PartitionEOF:
			log.Printf("Consumer %s: reached %v", c.topic, e)
		case kafka.Error:
			if e.IsFatal() {
				return Message{}, fmt.Errorf("%w: %v", ErrUnavailable, e)
			}
			if isAllBrokersDown(e) && c.downSince.IsZero() {
				c.downSince = time.Now()
			}
			log.Printf("Consumer %s: kafka error code %v: %v", c.topic, e.Code(), e)
			if err := c.checkOutage(); err != nil {
				return Message{}, err
			}
		default:
			log.Printf("Consumer %s: ignored %v", c.topic, e)
		}
	}
}

// checkOutage probes the cluster once the outage has lasted long enough.
// A successful metadata request means the brokers are back.
func (c *Consumer) checkOutage() error {
	if c.downSince.IsZero() || time.Since(c.downSince) < c.unavailableAfter {
		return nil
	}
	if _, err := c.c.GetMetadata(&c.topic, false, c.pollMs); err == nil {
		c.downSince = time.Time{}
		return nil
	}
	return fmt.Errorf("%w: all brokers down for %s", ErrUnavailable, time.Since(c.downSince).Round(time.Second))
}

func (c *Consumer) Close() error {
	return c.c.Close()
}
