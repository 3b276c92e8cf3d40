package fbsync

import "context"

// RepaintQueue is a coalescing signal with room for a single token.
//
// Offering a token while one is already pending is a no-op, so any number of
// requests made before the consumer wakes up result in one repaint.
type RepaintQueue struct {
	c chan struct{}
}

// NewRepaintQueue returns an empty queue.
func NewRepaintQueue() *RepaintQueue {
	return &RepaintQueue{c: make(chan struct{}, 1)}
}

// Offer queues a token without blocking. It reports false if a token was
// already pending and the offer was coalesced.
func (q *RepaintQueue) Offer() bool {
	select {
	case q.c <- struct{}{}:
		return true
	default:
		return false
	}
}

// Take blocks until a token is available or ctx is done.
func (q *RepaintQueue) Take(ctx context.Context) error {
	select {
	case <-q.c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the receive side of the queue, for use in a select. Receiving from it
// takes the token.
func (q *RepaintQueue) C() <-chan struct{} {
	return q.c
}

// Pending reports if a token is queued.
func (q *RepaintQueue) Pending() bool {
	return len(q.c) > 0
}
