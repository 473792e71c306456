// Package frame owns the link-layer wire contract.
//
// Ownership boundary:
// - control bytes (ACK/NAK/CAN) and SOF data frames
// - incremental decode over a chunked byte stream
// - XOR checksum validation and resynchronization
package frame

import (
	"errors"
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol/checksum"
)

// Link control bytes.
const (
	SOF byte = 0x01
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
)

// MaxPayloadLen bounds one data frame payload; the length field is a
// single byte.
const MaxPayloadLen = 255

var (
	ErrChecksum        = errors.New("frame: checksum mismatch")
	ErrInvalidMarker   = errors.New("frame: byte is not a frame marker")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrEmptyPayload    = errors.New("frame: empty payload")
)

// Kind discriminates the frame variants.
type Kind int

const (
	KindAck Kind = iota
	KindNak
	KindCan
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindAck:
		return "ack"
	case KindNak:
		return "nak"
	case KindCan:
		return "can"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one complete unit on the wire: a single control byte or a
// length-delimited, checksum-terminated data payload. Immutable once
// decoded.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// IncompleteError reports that buf holds the prefix of a valid frame but
// at least Need more bytes are required. It is a flow-control signal, not
// a failure.
type IncompleteError struct {
	Need int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("frame: incomplete, need %d more bytes", e.Need)
}

// Incomplete reports whether err is an IncompleteError.
func Incomplete(err error) bool {
	var ie *IncompleteError
	return errors.As(err, &ie)
}

// Encode emits the wire form of a data frame:
// [SOF][len][payload...][xor(len ++ payload)].
func Encode(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, 0, len(payload)+3)
	buf = append(buf, SOF, byte(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, checksum.XorSum(buf[1:]))
	return buf, nil
}

// Decode reads exactly one frame from the head of buf and returns it with
// the number of bytes consumed. Three outcomes are distinguished:
//
//   - a complete frame: (frame, consumed, nil)
//   - not enough bytes yet: consumed=0 and an *IncompleteError telling the
//     caller how many more bytes to fetch before retrying
//   - a corrupt or unrecognized head byte: ErrChecksum/ErrInvalidMarker;
//     the caller resynchronizes by dropping one byte
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) == 0 {
		return Frame{}, 0, &IncompleteError{Need: 1}
	}
	switch buf[0] {
	case ACK:
		return Frame{Kind: KindAck}, 1, nil
	case NAK:
		return Frame{Kind: KindNak}, 1, nil
	case CAN:
		return Frame{Kind: KindCan}, 1, nil
	case SOF:
	default:
		return Frame{}, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidMarker, buf[0])
	}

	// SOF frame: length byte, payload, trailing checksum.
	if len(buf) < 2 {
		return Frame{}, 0, &IncompleteError{Need: 2 - len(buf)}
	}
	n := int(buf[1])
	if n == 0 {
		return Frame{}, 0, ErrEmptyPayload
	}
	total := 2 + n + 1
	if len(buf) < total {
		return Frame{}, 0, &IncompleteError{Need: total - len(buf)}
	}
	if checksum.XorSum(buf[1:2+n]) != buf[2+n] {
		return Frame{}, 0, ErrChecksum
	}
	payload := make([]byte, n)
	copy(payload, buf[2:2+n])
	return Frame{Kind: KindData, Payload: payload}, total, nil
}

// Parser reassembles frames from a byte stream delivered in arbitrary
// chunks. Not safe for concurrent use; it belongs to the single link
// owner.
type Parser struct {
	buf []byte
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed appends raw bytes received from the link.
func (p *Parser) Feed(chunk []byte) {
	p.buf = append(p.buf, chunk...)
}

// Pending returns the number of buffered, not-yet-consumed bytes.
func (p *Parser) Pending() int {
	return len(p.buf)
}

// Next extracts the next complete frame. It returns an *IncompleteError
// when the buffered bytes do not yet form a frame, and ErrChecksum (or
// ErrInvalidMarker) after discarding one byte when the head of the buffer
// is corrupt, so the caller can count the event and call Next again.
func (p *Parser) Next() (Frame, error) {
	f, n, err := Decode(p.buf)
	if err != nil {
		if Incomplete(err) {
			return Frame{}, err
		}
		// Corrupt head byte: drop it and resynchronize on the next call.
		p.buf = p.buf[1:]
		return Frame{}, err
	}
	p.buf = p.buf[n:]
	return f, nil
}
