package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ankiplace/ankiplace/internal/canvas"
	"github.com/ankiplace/ankiplace/internal/store"
)

// Default serializer parameters. Retries cover SQLite's transient
// "database is locked" conditions; everything else fails immediately.
const (
	DefaultMaxAttempts   = 5
	DefaultRetryBase     = 10 * time.Millisecond
	DefaultRetryMax      = 500 * time.Millisecond
	DefaultShutdownGrace = 5 * time.Second
	DefaultReadRetryBase = 5 * time.Millisecond
	DefaultReadRetryMax  = 100 * time.Millisecond
)

var (
	writesApplied   = metrics.NewCounter(`ankiplace_writes_applied_total`)
	writesFailed    = metrics.NewCounter(`ankiplace_writes_failed_total`)
	writesAbandoned = metrics.NewCounter(`ankiplace_writes_abandoned_total`)
	writeRetries    = metrics.NewCounter(`ankiplace_write_retries_total`)
	readsTotal      = metrics.NewCounter(`ankiplace_reads_total`)
	readRetries     = metrics.NewCounter(`ankiplace_read_retries_total`)
)

// Engine is the write serializer and read pool in front of the store.
//
// All mutating operations funnel through a single apply goroutine (the
// Run loop), which guarantees at most one write is mid-flight against
// the store at any instant, process-wide. Reads bypass the queue
// entirely and run concurrently on the store's read-only pool.
//
// Thread-safety model:
//   - Submit(), Query(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// A single-file embedded store's write lock is process-wide; letting
// concurrent write attempts race converts a correctness property into
// lock-contention failures. Centralizing writes turns that failure mode
// into a queueing delay instead.
type Engine struct {
	queue *opQueue

	maxAttempts   int
	retryBase     time.Duration
	retryMax      time.Duration
	shutdownGrace time.Duration
	readRetryBase time.Duration
	readRetryMax  time.Duration

	// transient classifies retryable store errors. Defaults to
	// store.IsTransient; replaceable for tests.
	transient func(error) bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts sets the retry ceiling for transient write failures.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// WithRetryBackoff sets the exponential backoff bounds for write retries.
func WithRetryBackoff(base, max time.Duration) Option {
	return func(e *Engine) { e.retryBase, e.retryMax = base, max }
}

// WithShutdownGrace bounds how long Stop waits for queued writes to
// complete before failing the remainder.
func WithShutdownGrace(d time.Duration) Option {
	return func(e *Engine) { e.shutdownGrace = d }
}

// WithReadRetryBackoff sets the backoff bounds for transparent read
// retries.
func WithReadRetryBackoff(base, max time.Duration) Option {
	return func(e *Engine) { e.readRetryBase, e.readRetryMax = base, max }
}

// WithTransientClassifier replaces the transient-error classifier.
// Tests use this to simulate lock contention without a real lock.
func WithTransientClassifier(f func(error) bool) Option {
	return func(e *Engine) { e.transient = f }
}

// New creates an Engine with default parameters, overridable via options.
func New(opts ...Option) *Engine {
	e := &Engine{
		queue:         newOpQueue(),
		maxAttempts:   DefaultMaxAttempts,
		retryBase:     DefaultRetryBase,
		retryMax:      DefaultRetryMax,
		shutdownGrace: DefaultShutdownGrace,
		readRetryBase: DefaultReadRetryBase,
		readRetryMax:  DefaultReadRetryMax,
		transient:     store.IsTransient,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit enqueues a write and blocks the calling goroutine until the
// operation has been applied and durably committed, or has failed.
//
// Ordering is FIFO across all submitters. If the operation's context
// deadline passes before its turn is reached, it is abandoned with
// DeadlineExceeded and never applied; once an operation has started it
// is allowed to finish rather than be interrupted mid-commit.
//
// After Stop (or Run loop exit) new submissions fail with Unavailable.
func (e *Engine) Submit(ctx context.Context, op Op) error {
	p := pendingOp{op: op, ctx: ctx, done: make(chan error, 1)}

	if !e.queue.Enqueue(p) {
		return canvas.NewUnavailable("write serializer is shut down", nil)
	}

	return <-p.done
}

// Run starts the single-writer apply loop. Blocks until ctx is
// cancelled, then drains already-queued operations within the shutdown
// grace period before returning.
//
// Must be called from exactly ONE goroutine: the loop itself is the
// serialization point for every store mutation.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("write serializer starting")

	for {
		p, ok := e.queue.TryDequeue()
		if ok {
			e.applyOp(p)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("write serializer stopping, draining queue", "queued", e.queue.Len())
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			// Loop back to TryDequeue. A residual buffered signal on an
			// empty queue is harmless; the closed-channel case after Stop
			// is the one that terminates the loop.
			if e.queue.Len() == 0 && e.queue.Closed() {
				slog.Info("write serializer stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the serializer: no new submissions are
// accepted and Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// drain gives already-queued operations a bounded grace period to
// complete, then fails the remainder with Unavailable. Nothing queued is
// ever silently dropped.
func (e *Engine) drain() {
	deadline := time.NewTimer(e.shutdownGrace)
	defer deadline.Stop()

	for {
		p, ok := e.queue.TryDequeue()
		if !ok {
			return
		}

		select {
		case <-deadline.C:
			p.done <- canvas.NewUnavailable("write serializer shut down before operation started", nil)
			for {
				p, ok := e.queue.TryDequeue()
				if !ok {
					return
				}
				p.done <- canvas.NewUnavailable("write serializer shut down before operation started", nil)
			}
		default:
			e.applyOp(p)
		}
	}
}

// applyOp applies one queued write with bounded retries on transient
// lock contention. Called only from the Run loop goroutine.
func (e *Engine) applyOp(p pendingOp) {
	// Abandon operations whose deadline passed while queued.
	if err := p.ctx.Err(); err != nil {
		writesAbandoned.Inc()
		slog.Debug("write abandoned before start",
			"op", p.op.ID, "label", p.op.Label, "cause", err)
		p.done <- canvas.NewDeadlineExceeded("deadline passed before write started")
		return
	}

	// A started operation runs to completion even if the submitter's
	// deadline expires mid-commit; interrupting a commit would leave the
	// store state undefined. WithoutCancel keeps the context values
	// (trace ids) without the cancellation.
	applyCtx := context.WithoutCancel(p.ctx)

	var err error
	backoff := e.retryBase
	for attempt := 1; ; attempt++ {
		err = p.op.Apply(applyCtx)
		if err == nil || !e.transient(err) || attempt >= e.maxAttempts {
			break
		}

		writeRetries.Inc()
		slog.Warn("store busy, retrying write",
			"op", p.op.ID, "label", p.op.Label, "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > e.retryMax {
			backoff = e.retryMax
		}
	}

	switch {
	case err == nil:
		writesApplied.Inc()
		slog.Debug("write committed", "op", p.op.ID, "label", p.op.Label)
	case e.transient(err):
		writesFailed.Inc()
		slog.Error("write retry budget exhausted",
			"op", p.op.ID, "label", p.op.Label, "error", err)
		err = canvas.NewUnavailable("store contention exceeded retry budget", err)
	default:
		writesFailed.Inc()
		slog.Error("write failed", "op", p.op.ID, "label", p.op.Label, "error", err)
		err = asDomainOrStoreFailure(err, "write failed")
	}

	p.done <- err
}

// asDomainOrStoreFailure passes canvas-coded errors through unchanged
// and wraps anything else as a non-retryable store failure.
func asDomainOrStoreFailure(err error, msg string) error {
	if canvas.CodeOf(err) != "" {
		return err
	}
	return canvas.NewStoreFailure(msg, err)
}
