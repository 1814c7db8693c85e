package deps

import (
	"context"
	"sync"
)

// Queue is the work queue shared by the resolver's workers. Besides the
// pending identities it tracks how many popped identities are still being
// processed; the run is over once both counts are zero.
//
// Workers must Push every child of an identity before calling Done for it,
// otherwise a sibling could observe an empty, idle queue and exit early.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Identity
	inFlight int
	closed   bool
}

// NewQueue returns an empty, open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends id and wakes one waiting worker. It reports false when the
// queue is already closed; the caller then owns id.
func (q *Queue) Push(id Identity) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, id)
	q.cond.Signal()
	return true
}

// Pop blocks until an identity is available and marks it in flight.
// It returns false once the queue is closed, either because all work is
// finished or because ctx was cancelled.
func (q *Queue) Pop(ctx context.Context) (Identity, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed || ctx.Err() != nil {
			return Identity{}, false
		}
		if len(q.items) > 0 {
			id := q.items[0]
			q.items[0] = Identity{}
			q.items = q.items[1:]
			q.inFlight++
			return id, true
		}
		if q.inFlight == 0 {
			q.closeLocked()
			return Identity{}, false
		}
		q.cond.Wait()
	}
}

// Done marks a popped identity as finished. When it was the last one in
// flight and nothing is pending, the queue closes and every waiter returns.
func (q *Queue) Done(Identity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight--
	if q.inFlight == 0 && len(q.items) == 0 {
		q.closeLocked()
	}
}

// Close stops the queue early. Pending identities stay in the queue and can
// be collected with Drain.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeLocked()
}

func (q *Queue) closeLocked() {
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// Drain removes and returns every pending identity.
func (q *Queue) Drain() []Identity {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of pending identities.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight returns the number of identities popped but not yet done.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}
