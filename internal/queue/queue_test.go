package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fraudstream/internal/domain"
)

func tx(id int64) domain.Transaction {
	return domain.Transaction{TransactionID: id, UserID: id, Value: 1}
}

func TestEventQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := New(10)
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		if err := q.Put(ctx, tx(i)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Expected length 5, got %d", q.Len())
	}
	for i := int64(1); i <= 5; i++ {
		got, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("Take failed: %v", err)
		}
		if got.TransactionID != i {
			t.Errorf("Expected transaction %d, got %d", i, got.TransactionID)
		}
	}
}

func TestEventQueue_PutBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := New(2)
	ctx := context.Background()
	_ = q.Put(ctx, tx(1))
	_ = q.Put(ctx, tx(2))

	unblocked := make(chan struct{})
	go func() {
		_ = q.Put(ctx, tx(3))
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("Put returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	if got, _ := q.Take(ctx); got.TransactionID != 1 {
		t.Errorf("Expected transaction 1, got %d", got.TransactionID)
	}

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("Put still blocked after a Take freed a slot")
	}
}

func TestEventQueue_TakeBlocksWhenEmpty(t *testing.T) {
	t.Parallel()

	q := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Take(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestEventQueue_PutHonoursContext(t *testing.T) {
	t.Parallel()

	q := New(1)
	_ = q.Put(context.Background(), tx(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Put(ctx, tx(2)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEventQueue_CloseDrainsThenFails(t *testing.T) {
	t.Parallel()

	q := New(4)
	ctx := context.Background()
	_ = q.Put(ctx, tx(1))
	_ = q.Put(ctx, tx(2))
	q.Close()
	q.Close()

	if err := q.Put(ctx, tx(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Put, got %v", err)
	}
	for i := int64(1); i <= 2; i++ {
		got, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("Expected buffered item %d, got error %v", i, err)
		}
		if got.TransactionID != i {
			t.Errorf("Expected %d, got %d", i, got.TransactionID)
		}
	}
	if _, err := q.Take(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after drain, got %v", err)
	}
}

func TestEventQueue_CloseWakesBlockedProducer(t *testing.T) {
	t.Parallel()

	q := New(1)
	_ = q.Put(context.Background(), tx(1))

	errc := make(chan error, 1)
	go func() { errc <- q.Put(context.Background(), tx(2)) }()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked producer not woken by Close")
	}
}

func TestEventQueue_ManyProducersNoLossNoDuplicates(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 4, 250
	q := New(8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := int64(p*perProducer + i)
				if err := q.Put(ctx, tx(id)); err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
			}
		}(p)
	}

	seen := make(map[int64]bool)
	lastPerProducer := make(map[int64]int64)
	for n := 0; n < producers*perProducer; n++ {
		got, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("Take failed: %v", err)
		}
		if seen[got.TransactionID] {
			t.Fatalf("duplicate transaction %d", got.TransactionID)
		}
		seen[got.TransactionID] = true

		p := got.TransactionID / perProducer
		if last, ok := lastPerProducer[p]; ok && got.TransactionID < last {
			t.Errorf("producer %d reordered: %d after %d", p, got.TransactionID, last)
		}
		lastPerProducer[p] = got.TransactionID
	}
	wg.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("Expected %d distinct transactions, got %d", producers*perProducer, len(seen))
	}
}
