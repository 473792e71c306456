// Package state owns the long-lived controller and node registries.
//
// Ownership boundary:
// - controller attributes (read-mostly, written at initialization)
// - per-node storage with independent reader-writer locking
//
// Locks are held for single synchronous operations only; no accessor
// spans a suspension point.
package state
