package engine

import (
	"context"
	"sync"
)

// Op is an atomic unit of work against the store. ID is a caller-supplied
// identifier used for tracing; Label names the operation kind for logs
// and metrics. Apply closes over the store call and captures any result
// values.
type Op struct {
	ID    string
	Label string
	Apply func(ctx context.Context) error
}

// pendingOp is a queued write together with its submitter's context and
// the channel its result is delivered on.
type pendingOp struct {
	op   Op
	ctx  context.Context
	done chan error // buffered, size 1
}

// opQueue is a thread-safe FIFO queue of pending writes.
//
// The queue is unbounded: backpressure is the submitting goroutine
// blocking on its done channel, not a full queue. Order is strictly
// first-submitted, first-applied; nothing ever reorders or drops a
// queued operation.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type opQueue struct {
	mu      sync.Mutex
	pending []pendingOp
	closed  bool
	signal  chan struct{} // Signals op availability (buffered, size 1)
}

// newOpQueue creates an empty queue.
func newOpQueue() *opQueue {
	return &opQueue{
		pending: make([]pendingOp, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an operation to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *opQueue) Enqueue(p pendingOp) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.pending = append(q.pending, p)

	// Non-blocking signal - the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (pendingOp{}, false) if the queue is empty.
func (q *opQueue) TryDequeue() (pendingOp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return pendingOp{}, false
	}

	p := q.pending[0]

	// Nil out the slot so the backing array doesn't retain the op's
	// closure and context until reallocation.
	q.pending[0] = pendingOp{}

	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}

	return p, true
}

// Wait returns a channel that signals when operations may be available.
// Use with select alongside ctx.Done().
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *opQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Closed reports whether the queue has stopped accepting submissions.
func (q *opQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further submissions. Already-queued operations remain
// for the drain pass. Wakes any blocked waiters.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
