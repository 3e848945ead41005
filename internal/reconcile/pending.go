package reconcile

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	pendingBaseBackoff = 5 * time.Second
	pendingMaxBackoff  = 10 * time.Minute
	pendingMaxAttempts = 10
)

// pendingWrite is one optimistically-applied store write that has not been
// confirmed durable yet.
type pendingWrite struct {
	label       string
	attempts    int
	nextAttempt time.Time
	apply       func(ctx context.Context) error
}

// pendingQueue is the reconciliation queue for failed persists: in-memory
// state stays authoritative while writes are retried with exponential
// backoff until they land or exhaust their attempts.
type pendingQueue struct {
	mu    sync.Mutex
	items []*pendingWrite
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

func (q *pendingQueue) add(label string, apply func(ctx context.Context) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &pendingWrite{
		label:       label,
		attempts:    1,
		nextAttempt: time.Now().Add(pendingBaseBackoff),
		apply:       apply,
	})
}

// flush retries every due write and returns the number still unsynced.
func (q *pendingQueue) flush(ctx context.Context) int {
	q.mu.Lock()
	due := make([]*pendingWrite, 0, len(q.items))
	for _, w := range q.items {
		if !w.nextAttempt.After(time.Now()) {
			due = append(due, w)
		}
	}
	q.mu.Unlock()

	for _, w := range due {
		err := w.apply(ctx)

		q.mu.Lock()
		if err == nil {
			q.remove(w)
		} else {
			w.attempts++
			if w.attempts > pendingMaxAttempts {
				log.Printf("⚠️ Dropping unsynced write after %d attempts: %s (%v)", pendingMaxAttempts, w.label, err)
				q.remove(w)
			} else {
				w.nextAttempt = time.Now().Add(backoff(w.attempts))
			}
		}
		q.mu.Unlock()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// remove expects q.mu held.
func (q *pendingQueue) remove(target *pendingWrite) {
	for i, w := range q.items {
		if w == target {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *pendingQueue) labels() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.items))
	for _, w := range q.items {
		out = append(out, w.label)
	}
	return out
}

// backoff is base * 2^(attempt-1), capped.
func backoff(attempt int) time.Duration {
	d := pendingBaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= pendingMaxBackoff {
			return pendingMaxBackoff
		}
	}
	return d
}
