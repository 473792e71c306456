package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Type:     TypeRequest,
		Function: FnSendData,
		Params:   []byte{0x05, 0x02, 0x20, 0x01, 0x25, 0x01},
	}
	wire := EncodeEnvelope(env)
	if wire[0] != byte(TypeRequest) || wire[1] != byte(FnSendData) {
		t.Fatalf("unexpected envelope head: % x", wire[:2])
	}
	got, err := DecodeEnvelope(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != env.Type || got.Function != env.Function || !bytes.Equal(got.Params, env.Params) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeEnvelopeEmptyParams(t *testing.T) {
	got, err := DecodeEnvelope([]byte{byte(TypeResponse), byte(FnGetVersion)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Params) != 0 {
		t.Fatalf("expected empty params, got % x", got.Params)
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	if _, err := DecodeEnvelope([]byte{0x00}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short payload err=%v", err)
	}
	if _, err := DecodeEnvelope([]byte{0x7F, 0x15}); !errors.Is(err, ErrInvalidCommandType) {
		t.Fatalf("bad type err=%v", err)
	}
}

func TestDecodeEnvelopeCopiesParams(t *testing.T) {
	wire := []byte{byte(TypeResponse), byte(FnMemoryGetID), 0xAA}
	env, err := DecodeEnvelope(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wire[2] = 0xBB
	if env.Params[0] != 0xAA {
		t.Fatalf("params alias the input buffer")
	}
}
