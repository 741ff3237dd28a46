// Package queue provides the bounded FIFO of pending conversion paths. All
// operations are safe for concurrent use; capacity is resizable while the
// daemon runs, and a shrink never loses items silently.
package queue

import (
	"context"
	"sync"

	"lectern/internal/services"
)

// Queue is a bounded FIFO of file paths.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []string
	capacity int
}

// New constructs a queue with the given capacity. Capacities below one are
// raised to one.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. A full queue rejects immediately with an error tagged
// services.ErrQueueFull; it never blocks the caller.
func (q *Queue) Push(item string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return services.Wrap(services.ErrQueueFull, "queue", "push", item, nil)
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// Pop removes and returns the oldest item, suspending the caller until one is
// available or the context is canceled.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	for len(q.items) == 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		q.notEmpty.Wait()
	}

	item := q.items[0]
	q.items = append([]string(nil), q.items[1:]...)
	return item, nil
}

// Size returns the number of queued items.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured capacity.
func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Items returns a copy of the queued items in FIFO order.
func (q *Queue) Items() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.items...)
}

// Resize changes the capacity atomically with respect to concurrent push and
// pop. Queued items are preserved in FIFO order up to the new capacity; items
// that no longer fit are removed from the queue and returned so the caller can
// report them instead of dropping them silently.
func (q *Queue) Resize(capacity int) []string {
	if capacity < 1 {
		capacity = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.capacity = capacity
	if len(q.items) <= capacity {
		return nil
	}

	rejected := append([]string(nil), q.items[capacity:]...)
	q.items = append([]string(nil), q.items[:capacity]...)
	return rejected
}
