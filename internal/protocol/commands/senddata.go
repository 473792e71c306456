package commands

import (
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

// Transmit options for SendData.
const (
	TxOptionAck       byte = 0x01
	TxOptionAutoRoute byte = 0x04
	TxOptionExplore   byte = 0x20
)

// Transmit status values reported by the SendData callback.
const (
	TxStatusOK      byte = 0x00
	TxStatusNoAck   byte = 0x01
	TxStatusFail    byte = 0x02
	TxStatusNoRoute byte = 0x04
)

// SendData delivers an application payload to one node. The controller
// answers with an accepted/rejected response and later reports the
// transmit result through a callback correlated by callback id.
type SendData struct {
	NodeID    byte
	Data      []byte
	TxOptions byte

	callbackID byte
}

func (SendData) Function() protocol.FunctionType { return protocol.FnSendData }

func (c *SendData) EncodeParams() ([]byte, error) {
	if len(c.Data) == 0 {
		return nil, fmt.Errorf("%w: send data without payload", protocol.ErrInvalidParams)
	}
	if len(c.Data) > 255 {
		return nil, fmt.Errorf("%w: send data payload %d bytes", protocol.ErrInvalidParams, len(c.Data))
	}
	buf := make([]byte, 0, len(c.Data)+4)
	buf = append(buf, c.NodeID, byte(len(c.Data)))
	buf = append(buf, c.Data...)
	return append(buf, c.TxOptions, c.callbackID), nil
}

func (*SendData) ExpectsResponse() bool { return true }
func (*SendData) ExpectsCallback() bool { return true }

func (c *SendData) TestResponse(env protocol.Envelope) bool {
	return matchResponse(protocol.FnSendData, env)
}

// TestCallback matches the request-type envelope the controller issues
// once the transmission settles, keyed by callback id.
func (c *SendData) TestCallback(env protocol.Envelope) bool {
	return env.Type == protocol.TypeRequest &&
		env.Function == protocol.FnSendData &&
		len(env.Params) >= 1 && env.Params[0] == c.callbackID
}

func (c *SendData) CallbackID() byte      { return c.callbackID }
func (c *SendData) SetCallbackID(id byte) { c.callbackID = id }

// ParseSendDataResponse decodes the accepted flag of the response frame.
func ParseSendDataResponse(env protocol.Envelope) (accepted bool, err error) {
	if len(env.Params) < 1 {
		return false, fmt.Errorf("%w: send data response empty", protocol.ErrInvalidParams)
	}
	return env.Params[0] != 0, nil
}

// ParseSendDataCallback decodes [callback id][tx status] of the callback.
func ParseSendDataCallback(env protocol.Envelope) (txStatus byte, err error) {
	if len(env.Params) < 2 {
		return 0, fmt.Errorf("%w: send data callback %d bytes", protocol.ErrInvalidParams, len(env.Params))
	}
	return env.Params[1], nil
}
