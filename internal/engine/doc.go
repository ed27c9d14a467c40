// Package engine serializes all mutating store operations through a
// single apply goroutine and runs read operations concurrently against
// the store's read-only pool.
//
// # Write path
//
// Submit enqueues an operation into a strictly ordered FIFO queue and
// blocks the submitting goroutine until the operation has been applied
// and durably committed. The Run loop applies at most one operation at a
// time; the next queued operation does not start until the previous
// commit (or rollback) is fully acknowledged by the store.
//
// Transient "database is locked" conditions are retried with bounded
// exponential backoff before surfacing as Unavailable. Non-transient
// store errors fail the operation immediately without retry; the queue
// keeps processing subsequent operations either way.
//
// # Read path
//
// Query bypasses the queue. Reads retry transparently on transient lock
// contention, bounded by the caller's deadline, and never observe a
// write that has not committed (WAL snapshot isolation in the store).
//
// # Shutdown
//
// Cancelling the Run context (or calling Stop) rejects new submissions
// and drains already-queued operations within a bounded grace period.
// Operations that cannot start within the grace period fail with
// Unavailable; none are silently dropped.
package engine
