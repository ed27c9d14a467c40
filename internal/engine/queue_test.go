package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(id string) pendingOp {
	return pendingOp{
		op:   Op{ID: id, Apply: func(ctx context.Context) error { return nil }},
		ctx:  context.Background(),
		done: make(chan error, 1),
	}
}

func TestOpQueue_EnqueueDequeue(t *testing.T) {
	q := newOpQueue()

	ok := q.Enqueue(pending("op-1"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "op-1", got.op.ID)
}

func TestOpQueue_FIFO(t *testing.T) {
	q := newOpQueue()

	for _, id := range []string{"A", "B", "C"} {
		q.Enqueue(pending(id))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.op.ID)
	}
}

func TestOpQueue_TryDequeue_Empty(t *testing.T) {
	q := newOpQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestOpQueue_Enqueue_AfterClose(t *testing.T) {
	q := newOpQueue()
	q.Close()

	ok := q.Enqueue(pending("late"))
	assert.False(t, ok, "enqueue after close should return false")
}

func TestOpQueue_Close_KeepsPendingForDrain(t *testing.T) {
	q := newOpQueue()
	q.Enqueue(pending("queued"))
	q.Close()

	// Already-queued operations survive Close for the drain pass.
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "queued", got.op.ID)

	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestOpQueue_SignalCoalesces(t *testing.T) {
	q := newOpQueue()

	// Many enqueues, one buffered signal - Wait never blocks forever.
	for i := 0; i < 10; i++ {
		q.Enqueue(pending("op"))
	}
	assert.Equal(t, 10, q.Len())

	select {
	case <-q.Wait():
	default:
		t.Fatal("signal should be pending after enqueues")
	}
}

func TestOpQueue_CloseIsIdempotent(t *testing.T) {
	q := newOpQueue()
	q.Close()
	q.Close() // must not panic
}

func TestOpQueue_Closed(t *testing.T) {
	q := newOpQueue()
	assert.False(t, q.Closed())

	// A drained queue with a leftover signal is not closed.
	q.Enqueue(pending("op"))
	_, _ = q.TryDequeue()
	assert.False(t, q.Closed())

	q.Close()
	assert.True(t, q.Closed())
}
