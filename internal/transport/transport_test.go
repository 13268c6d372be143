package transport

import (
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"nil", nil, false},
		{"plain error", plain, false},
		{"all brokers down", kafka.NewError(kafka.ErrAllBrokersDown, "3/3 brokers are down", false), true},
		{"fatal", kafka.NewError(kafka.ErrFatal, "fenced", true), true},
		{"timed out", kafka.NewError(kafka.ErrMsgTimedOut, "message timed out", false), false},
		{"queue full", kafka.NewError(kafka.ErrQueueFull, "local queue full", false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if errors.Is(got, ErrUnavailable) != tt.unavailable {
				t.Errorf("classify(%v) unavailable = %v, want %v", tt.err, !tt.unavailable, tt.unavailable)
			}
			if tt.err == nil && got != nil {
				t.Errorf("Expected nil, got %v", got)
			}
		})
	}
}

func TestDescribePartitions(t *testing.T) {
	t.Parallel()

	topic := "transaction"
	got := describePartitions([]kafka.TopicPartition{
		{Topic: &topic, Partition: 0},
		{Topic: &topic, Partition: 2},
	})
	if got != "transaction[0], transaction[2]" {
		t.Errorf("Unexpected description: %s", got)
	}
}
