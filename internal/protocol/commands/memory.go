package commands

import (
	"encoding/binary"
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

// MemoryGetID reads the controller's home id and its own node id.
type MemoryGetID struct {
	responseOnly
}

func (MemoryGetID) Function() protocol.FunctionType { return protocol.FnMemoryGetID }

func (MemoryGetID) EncodeParams() ([]byte, error) { return nil, nil }

func (MemoryGetID) TestResponse(env protocol.Envelope) bool {
	return matchResponse(protocol.FnMemoryGetID, env)
}

// MemoryID is the decoded MemoryGetID response.
type MemoryID struct {
	HomeID    uint32
	OwnNodeID byte
}

// ParseMemoryIDResponse decodes [home id, 4 bytes BE][own node id].
func ParseMemoryIDResponse(env protocol.Envelope) (MemoryID, error) {
	if len(env.Params) < 5 {
		return MemoryID{}, fmt.Errorf("%w: memory id response %d bytes", protocol.ErrInvalidParams, len(env.Params))
	}
	return MemoryID{
		HomeID:    binary.BigEndian.Uint32(env.Params[0:4]),
		OwnNodeID: env.Params[4],
	}, nil
}
