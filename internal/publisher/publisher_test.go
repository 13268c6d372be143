package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fraudstream/internal/codec"
	"fraudstream/internal/domain"
	"fraudstream/internal/queue"
	"fraudstream/internal/transport"
)

type fakeSink struct {
	mu   sync.Mutex
	keys []string
	txs  []domain.Transaction
	// failOn maps a transaction id to the error returned for it.
	failOn map[int64]error
}

func (s *fakeSink) Publish(_ context.Context, key string, value []byte) error {
	tx, err := codec.DecodeTransaction(codec.JSON{}, value)
	if err != nil {
		return err
	}
	if err := s.failOn[tx.TransactionID]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.txs = append(s.txs, tx)
	return nil
}

func fill(t *testing.T, q *queue.EventQueue, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		tx := domain.Transaction{TransactionID: int64(i), UserID: int64(100 + i%3), Value: float64(i), Country: "UK"}
		if err := q.Put(context.Background(), tx); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
}

func TestPublisherDrainsInOrder(t *testing.T) {
	t.Parallel()

	q := queue.New(16)
	fill(t, q, 10)
	q.Close()

	sink := &fakeSink{}
	p := New(q, sink, codec.JSON{}, false)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(sink.txs) != 10 {
		t.Fatalf("Expected 10 messages, got %d", len(sink.txs))
	}
	for i, tx := range sink.txs {
		if tx.TransactionID != int64(i+1) {
			t.Errorf("position %d: expected transaction %d, got %d", i, i+1, tx.TransactionID)
		}
		if sink.keys[i] != fmt.Sprint(tx.UserID) {
			t.Errorf("Expected key %d, got %s", tx.UserID, sink.keys[i])
		}
	}
	if p.Sent() != 10 {
		t.Errorf("Expected Sent 10, got %d", p.Sent())
	}
}

func TestPublisherSkipsTransientFailures(t *testing.T) {
	t.Parallel()

	q := queue.New(8)
	fill(t, q, 4)
	q.Close()

	sink := &fakeSink{failOn: map[int64]error{2: errors.New("request timed out")}}
	if err := New(q, sink, codec.JSON{}, false).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.txs) != 3 {
		t.Errorf("Expected 3 delivered messages, got %d", len(sink.txs))
	}
}

func TestPublisherStopsWhenTransportUnavailable(t *testing.T) {
	t.Parallel()

	q := queue.New(8)
	fill(t, q, 4)

	sink := &fakeSink{failOn: map[int64]error{3: fmt.Errorf("%w: all brokers down", transport.ErrUnavailable)}}
	err := New(q, sink, codec.JSON{}, false).Run(context.Background())
	if !errors.Is(err, transport.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if len(sink.txs) != 2 {
		t.Errorf("Expected 2 delivered before the outage, got %d", len(sink.txs))
	}
}

func TestPublisherStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := queue.New(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(q, &fakeSink{}, codec.JSON{}, false).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop on cancel")
	}
}
