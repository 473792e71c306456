// Package commands holds the concrete serial-API operations the driver
// itself uses. The catalog is intentionally small; higher layers define
// their own types against the protocol.Request contract.
package commands

import (
	"github.com/meshwire/meshwire/internal/protocol"
)

// responseOnly supplies the Request surface shared by commands that are
// answered with a single response frame and no callback.
type responseOnly struct{}

func (responseOnly) ExpectsResponse() bool               { return true }
func (responseOnly) ExpectsCallback() bool               { return false }
func (responseOnly) TestCallback(protocol.Envelope) bool { return false }
func (responseOnly) CallbackID() byte                    { return protocol.NoCallback }
func (responseOnly) SetCallbackID(byte)                  {}

// matchResponse is the default response predicate: a response-type
// envelope carrying the same function type as the request.
func matchResponse(fn protocol.FunctionType, env protocol.Envelope) bool {
	return env.Type == protocol.TypeResponse && env.Function == fn
}
