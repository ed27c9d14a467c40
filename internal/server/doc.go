// Package server is the HTTP request gateway. Every route is statically
// classified as a read or a write: reads dispatch to the concurrent read
// pool, writes to the FIFO write serializer. Classification never
// depends on payload contents.
//
// The privileged submit-reviews route is authenticated against the
// session secret with a constant-time comparison before any store
// access. Error codes produced by lower components are translated to
// HTTP statuses but never reinterpreted.
package server
