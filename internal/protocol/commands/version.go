package commands

import (
	"bytes"
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

// GetVersion asks the controller for its firmware version string and
// library type.
type GetVersion struct {
	responseOnly
}

func (GetVersion) Function() protocol.FunctionType { return protocol.FnGetVersion }

func (GetVersion) EncodeParams() ([]byte, error) { return nil, nil }

func (GetVersion) TestResponse(env protocol.Envelope) bool {
	return matchResponse(protocol.FnGetVersion, env)
}

// VersionInfo is the decoded GetVersion response.
type VersionInfo struct {
	Library     string
	LibraryType byte
}

// ParseVersionResponse decodes [version string, NUL][library type].
func ParseVersionResponse(env protocol.Envelope) (VersionInfo, error) {
	nul := bytes.IndexByte(env.Params, 0x00)
	if nul < 0 || nul+1 >= len(env.Params) {
		return VersionInfo{}, fmt.Errorf("%w: version response %d bytes", protocol.ErrInvalidParams, len(env.Params))
	}
	return VersionInfo{
		Library:     string(env.Params[:nul]),
		LibraryType: env.Params[nul+1],
	}, nil
}
