package commands

import (
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

// GetNodeProtocolInfo reads one node's protocol-layer capability snapshot.
type GetNodeProtocolInfo struct {
	responseOnly
	NodeID byte
}

func (GetNodeProtocolInfo) Function() protocol.FunctionType {
	return protocol.FnGetNodeProtocolInfo
}

func (c GetNodeProtocolInfo) EncodeParams() ([]byte, error) {
	return []byte{c.NodeID}, nil
}

func (GetNodeProtocolInfo) TestResponse(env protocol.Envelope) bool {
	return matchResponse(protocol.FnGetNodeProtocolInfo, env)
}

// ProtocolInfo is the decoded per-node capability snapshot.
type ProtocolInfo struct {
	Listening     bool
	Routing       bool
	BasicClass    byte
	GenericClass  byte
	SpecificClass byte
}

// ParseProtocolInfoResponse decodes
// [capability][security][reserved][basic][generic][specific].
func ParseProtocolInfoResponse(env protocol.Envelope) (ProtocolInfo, error) {
	p := env.Params
	if len(p) < 6 {
		return ProtocolInfo{}, fmt.Errorf("%w: protocol info response %d bytes", protocol.ErrInvalidParams, len(p))
	}
	return ProtocolInfo{
		Listening:     p[0]&0x80 != 0,
		Routing:       p[0]&0x40 != 0,
		BasicClass:    p[3],
		GenericClass:  p[4],
		SpecificClass: p[5],
	}, nil
}
