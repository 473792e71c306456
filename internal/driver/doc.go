// Package driver owns the transport correlation engine.
//
// Ownership boundary:
// - single-owner transport loop over the serial link
// - per-command execution state machine with bounded link retries
// - awaited-match registry correlating inbound envelopes to waiters
// - callback id pool
// - notification stream for unsolicited inbound commands
package driver
