package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

// Query runs a read operation on the calling goroutine. Reads never
// enter the write queue and may run concurrently with each other and
// with the in-flight write.
//
// If the store cannot service the read due to a file-level lock held
// during a writer's commit, Query retries transparently with short
// backoff instead of surfacing the contention, bounded by the
// operation's deadline.
func (e *Engine) Query(ctx context.Context, op Op) error {
	readsTotal.Inc()

	var err error
	backoff := e.readRetryBase
	for {
		err = op.Apply(ctx)
		if err == nil || !e.transient(err) {
			break
		}

		readRetries.Inc()
		slog.Debug("store busy, retrying read",
			"op", op.ID, "label", op.Label, "backoff", backoff)

		select {
		case <-ctx.Done():
			return canvas.NewUnavailable("read contention exceeded operation deadline", err)
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > e.readRetryMax {
			backoff = e.readRetryMax
		}
	}

	if err != nil {
		return asDomainOrStoreFailure(err, "read failed")
	}
	return nil
}
