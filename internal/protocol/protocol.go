package protocol

import "fmt"

// CommandType is the first payload byte of every data frame: the host
// sends requests, the controller answers with responses and issues
// requests of its own for callbacks and notifications.
type CommandType byte

const (
	TypeRequest  CommandType = 0x00
	TypeResponse CommandType = 0x01
)

func (t CommandType) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	default:
		return fmt.Sprintf("type(0x%02x)", byte(t))
	}
}

// FunctionType is the operation identifier carried by every command.
type FunctionType byte

// Function types the driver itself speaks. The catalog is much larger;
// callers register their own values freely.
const (
	FnGetInitData         FunctionType = 0x02
	FnApplicationHandler  FunctionType = 0x04
	FnSendData            FunctionType = 0x13
	FnGetVersion          FunctionType = 0x15
	FnMemoryGetID         FunctionType = 0x20
	FnGetNodeProtocolInfo FunctionType = 0x41
	FnApplicationUpdate   FunctionType = 0x49
)

func (f FunctionType) String() string {
	switch f {
	case FnGetInitData:
		return "get_init_data"
	case FnApplicationHandler:
		return "application_handler"
	case FnSendData:
		return "send_data"
	case FnGetVersion:
		return "get_version"
	case FnMemoryGetID:
		return "memory_get_id"
	case FnGetNodeProtocolInfo:
		return "get_node_protocol_info"
	case FnApplicationUpdate:
		return "application_update"
	default:
		return fmt.Sprintf("fn(0x%02x)", byte(f))
	}
}

// NoCallback is the reserved callback id meaning "no callback requested".
const NoCallback byte = 0

// Envelope is one decoded data-frame payload: the command type byte, the
// function type byte, and the remaining params verbatim. Inbound commands
// reach the driver in this shape; concrete command types decode Params
// further.
type Envelope struct {
	Type     CommandType
	Function FunctionType
	Params   []byte
}

// EncodeEnvelope lays out [type][function][params...].
func EncodeEnvelope(env Envelope) []byte {
	buf := make([]byte, 0, len(env.Params)+2)
	buf = append(buf, byte(env.Type), byte(env.Function))
	return append(buf, env.Params...)
}

// DecodeEnvelope splits a data-frame payload into an Envelope. Decode
// failures are parse errors, distinct from transport errors.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	if len(payload) < 2 {
		return Envelope{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(payload))
	}
	t := CommandType(payload[0])
	if t != TypeRequest && t != TypeResponse {
		return Envelope{}, fmt.Errorf("%w: 0x%02x", ErrInvalidCommandType, payload[0])
	}
	params := make([]byte, len(payload)-2)
	copy(params, payload[2:])
	return Envelope{Type: t, Function: FunctionType(payload[1]), Params: params}, nil
}

// Command is the minimal outbound capability: identify the operation and
// encode its params. The driver never inspects params bytes itself.
type Command interface {
	Function() FunctionType
	EncodeParams() ([]byte, error)
}

// Request is the full capability set the executor drives. A request
// declares which follow-ups it expects and recognizes its own response
// and callback among inbound envelopes; matching is by predicate, not by
// a shared transaction id.
type Request interface {
	Command

	// ExpectsResponse reports whether the controller answers this request
	// with an immediate response frame.
	ExpectsResponse() bool
	// ExpectsCallback reports whether a deferred callback frame follows.
	ExpectsCallback() bool

	// TestResponse reports whether env is this request's response.
	TestResponse(env Envelope) bool
	// TestCallback reports whether env is this request's callback.
	TestCallback(env Envelope) bool

	// CallbackID returns the id correlating the callback, NoCallback when
	// none was assigned. SetCallbackID is called by the driver before
	// encoding when ExpectsCallback is true.
	CallbackID() byte
	SetCallbackID(id byte)
}
