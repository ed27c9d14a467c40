// Package store is the durable-store adapter: it owns the single SQLite
// file holding all ankiplace state and translates domain operations into
// store-native calls.
//
// # Access modes
//
// The adapter exposes exactly two access modes:
//
//   - An exclusive mutating mode (the writer handle, one connection).
//     Only the write serializer calls the mutating methods, so at most
//     one write transaction is ever mid-flight process-wide.
//   - A concurrent read-only mode (the reader handle, a pooled mode=ro
//     connection). WAL snapshot isolation guarantees a reader never
//     observes a partially applied write.
//
// # Durability
//
// The writer runs with synchronous=FULL: a mutating method that returns
// nil has its transaction flushed to stable storage. The serializer
// relies on this to acknowledge commits to callers.
//
// # Initialization
//
// Open is idempotent. It applies the embedded schema with IF NOT EXISTS,
// runs user_version migrations, seeds the 32x32 canvas exactly once, and
// fails fast with a store failure when the file is corrupt or unreadable.
//
// Running multiple processes against the same file is not supported: the
// single-writer guarantee is process-local.
package store
