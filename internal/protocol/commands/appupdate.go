package commands

import (
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

// Application update states.
const (
	UpdateStateNodeInfoReceived byte = 0x84
	UpdateStateNodeInfoFailed   byte = 0x81
	UpdateStateSUCIDChanged     byte = 0x10
)

// ApplicationUpdate is an unsolicited controller notification: a node
// broadcast its information frame, or the SUC id changed. It arrives on
// the notification stream, never as a correlated reply.
type ApplicationUpdate struct {
	State          byte
	NodeID         byte
	CommandClasses []byte
}

// IsApplicationUpdate reports whether env is an application update
// notification.
func IsApplicationUpdate(env protocol.Envelope) bool {
	return env.Type == protocol.TypeRequest && env.Function == protocol.FnApplicationUpdate
}

// ParseApplicationUpdate decodes [state][node id][len][command classes...].
func ParseApplicationUpdate(env protocol.Envelope) (ApplicationUpdate, error) {
	p := env.Params
	if len(p) < 3 {
		return ApplicationUpdate{}, fmt.Errorf("%w: application update %d bytes", protocol.ErrInvalidParams, len(p))
	}
	n := int(p[2])
	if len(p) < 3+n {
		return ApplicationUpdate{}, fmt.Errorf("%w: application update info truncated", protocol.ErrInvalidParams)
	}
	u := ApplicationUpdate{State: p[0], NodeID: p[1]}
	if n > 0 {
		u.CommandClasses = make([]byte, n)
		copy(u.CommandClasses, p[3:3+n])
	}
	return u, nil
}
