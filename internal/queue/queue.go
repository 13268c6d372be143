// Package queue provides the bounded buffer between the transaction emitters
// and the single publishing goroutine.
package queue

import (
	"context"
	"errors"
	"sync"

	"fraudstream/internal/domain"
)

var ErrClosed = errors.New("queue closed")

// EventQueue is a bounded FIFO shared by many producers and one consumer.
// Put blocks while the queue is full; that is the only backpressure the
// generator has.
type EventQueue struct {
	items chan domain.Transaction
	done  chan struct{}
	once  sync.Once
}

func New(capacity int) *EventQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &EventQueue{
		items: make(chan domain.Transaction, capacity),
		done:  make(chan struct{}),
	}
}

// Put enqueues tx, waiting for room. It returns ErrClosed once the queue is
// closed and ctx.Err() if ctx ends first.
func (q *EventQueue) Put(ctx context.Context, tx domain.Transaction) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.items <- tx:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take dequeues the oldest transaction, waiting while empty. After Close the
// remaining buffered items are still handed out before ErrClosed.
func (q *EventQueue) Take(ctx context.Context) (domain.Transaction, error) {
	select {
	case tx := <-q.items:
		return tx, nil
	default:
	}

	select {
	case tx := <-q.items:
		return tx, nil
	case <-q.done:
		select {
		case tx := <-q.items:
			return tx, nil
		default:
			return domain.Transaction{}, ErrClosed
		}
	case <-ctx.Done():
		return domain.Transaction{}, ctx.Err()
	}
}

// Close wakes every blocked producer and consumer. Safe to call more than once.
func (q *EventQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

func (q *EventQueue) Len() int { return len(q.items) }

func (q *EventQueue) Cap() int { return cap(q.items) }
