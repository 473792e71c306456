// Package protocol owns the serial-API command contract.
//
// Ownership boundary:
// - envelope (command type + function type + params) codec
// - the capability interface outbound commands implement
// - typed decode errors distinct from transport errors
package protocol
