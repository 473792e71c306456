package commands

import (
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

const nodeBitmaskLen = 29 // 232 node ids, one bit each

// GetInitData asks the controller for its API capabilities and the set of
// node ids currently in the network.
type GetInitData struct {
	responseOnly
}

func (GetInitData) Function() protocol.FunctionType { return protocol.FnGetInitData }

func (GetInitData) EncodeParams() ([]byte, error) { return nil, nil }

func (GetInitData) TestResponse(env protocol.Envelope) bool {
	return matchResponse(protocol.FnGetInitData, env)
}

// InitData is the decoded GetInitData response.
type InitData struct {
	APIVersion   byte
	Capabilities byte
	NodeIDs      []byte
	ChipType     byte
	ChipVersion  byte
}

// IsSecondary reports the secondary-controller capability bit.
func (d InitData) IsSecondary() bool { return d.Capabilities&0x04 != 0 }

// IsStaticUpdateController reports the SUC capability bit.
func (d InitData) IsStaticUpdateController() bool { return d.Capabilities&0x08 != 0 }

// ParseInitDataResponse decodes
// [api version][capabilities][bitmask len][bitmask...][chip type][chip version].
func ParseInitDataResponse(env protocol.Envelope) (InitData, error) {
	p := env.Params
	if len(p) < 3 {
		return InitData{}, fmt.Errorf("%w: init data response %d bytes", protocol.ErrInvalidParams, len(p))
	}
	maskLen := int(p[2])
	if maskLen != nodeBitmaskLen {
		return InitData{}, fmt.Errorf("%w: node bitmask length %d", protocol.ErrInvalidParams, maskLen)
	}
	if len(p) < 3+maskLen+2 {
		return InitData{}, fmt.Errorf("%w: init data response %d bytes", protocol.ErrInvalidParams, len(p))
	}
	d := InitData{
		APIVersion:   p[0],
		Capabilities: p[1],
		ChipType:     p[3+maskLen],
		ChipVersion:  p[3+maskLen+1],
	}
	for i, b := range p[3 : 3+maskLen] {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				d.NodeIDs = append(d.NodeIDs, byte(i*8+bit+1))
			}
		}
	}
	return d, nil
}
