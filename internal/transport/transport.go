// Package transport wraps the Kafka producer and consumer used on both sides
// of the pipeline. Everything above this package only sees Sink and Source.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// ErrUnavailable means the transport cannot make progress at all (every
// broker down, fatal client error, producer closed). Callers should stop
// instead of retrying in a loop.
var ErrUnavailable = errors.New("transport unavailable")

type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

// Sink publishes one message to a fixed topic and waits for the outcome.
type Sink interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Source hands out messages one at a time in partition order.
type Source interface {
	Receive(ctx context.Context) (Message, error)
}

// classify maps a Kafka error onto ErrUnavailable when the condition is not
// something a retry of the same call would fix.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		if kerr.IsFatal() || kerr.Code() == kafka.ErrAllBrokersDown {
			return fmt.Errorf("%w: %v", ErrUnavailable, kerr)
		}
	}
	return err
}

func isAllBrokersDown(err error) bool {
	var kerr kafka.Error
	return errors.As(err, &kerr) && kerr.Code() == kafka.ErrAllBrokersDown
}
