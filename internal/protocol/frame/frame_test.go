package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/meshwire/meshwire/internal/protocol/checksum"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x00},
		{0x00, 0x15, 0x5A},
		bytes.Repeat([]byte{0xA5}, MaxPayloadLen),
	}
	for _, p := range payloads {
		wire, err := Encode(p)
		if err != nil {
			t.Fatalf("encode %d bytes: %v", len(p), err)
		}
		if wire[0] != SOF || wire[1] != byte(len(p)) {
			t.Fatalf("bad frame head: % x", wire[:2])
		}
		if got, want := wire[len(wire)-1], checksum.XorSum(wire[1:len(wire)-1]); got != want {
			t.Fatalf("checksum byte got=0x%02x want=0x%02x", got, want)
		}
		f, n, err := Decode(wire)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if n != len(wire) {
			t.Fatalf("consumed %d of %d", n, len(wire))
		}
		if f.Kind != KindData || !bytes.Equal(f.Payload, p) {
			t.Fatalf("round trip mismatch: %+v", f)
		}
	}
}

func TestEncodeRejectsBadPayloads(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("empty payload err=%v", err)
	}
	if _, err := Encode(make([]byte, MaxPayloadLen+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("oversized payload err=%v", err)
	}
}

func TestDecodeControlBytes(t *testing.T) {
	cases := []struct {
		b    byte
		want Kind
	}{
		{ACK, KindAck},
		{NAK, KindNak},
		{CAN, KindCan},
	}
	for _, tc := range cases {
		f, n, err := Decode([]byte{tc.b, 0xFF})
		if err != nil {
			t.Fatalf("decode 0x%02x: %v", tc.b, err)
		}
		if n != 1 || f.Kind != tc.want {
			t.Fatalf("decode 0x%02x: consumed=%d kind=%v", tc.b, n, f.Kind)
		}
	}
}

func TestDecodeIncomplete(t *testing.T) {
	wire, err := Encode([]byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for cut := 0; cut < len(wire); cut++ {
		_, n, err := Decode(wire[:cut])
		var ie *IncompleteError
		if !errors.As(err, &ie) {
			t.Fatalf("prefix %d: expected incomplete, got %v", cut, err)
		}
		if n != 0 {
			t.Fatalf("prefix %d: consumed %d bytes", cut, n)
		}
		if ie.Need <= 0 || cut+ie.Need > len(wire) {
			t.Fatalf("prefix %d: need=%d out of range", cut, ie.Need)
		}
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	wire, _ := Encode([]byte{0x10, 0x20})
	wire[len(wire)-1] ^= 0x01
	if _, _, err := Decode(wire); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected checksum error, got %v", err)
	}
}

func TestDecodeInvalidMarker(t *testing.T) {
	if _, _, err := Decode([]byte{0x7F}); !errors.Is(err, ErrInvalidMarker) {
		t.Fatalf("expected invalid marker, got %v", err)
	}
}

func TestParserChunkedDelivery(t *testing.T) {
	wire, _ := Encode([]byte{0xAA, 0xBB, 0xCC})
	stream := append([]byte{ACK}, wire...)

	p := NewParser()
	var got []Frame
	for _, b := range stream {
		p.Feed([]byte{b})
		for {
			f, err := p.Next()
			if err != nil {
				if Incomplete(err) {
					break
				}
				t.Fatalf("parser error: %v", err)
			}
			got = append(got, f)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if got[0].Kind != KindAck || got[1].Kind != KindData {
		t.Fatalf("unexpected frames: %+v", got)
	}
	if !bytes.Equal(got[1].Payload, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("unexpected payload: % x", got[1].Payload)
	}
	if p.Pending() != 0 {
		t.Fatalf("parser should be drained, pending=%d", p.Pending())
	}
}

func TestParserResynchronizesAfterNoise(t *testing.T) {
	wire, _ := Encode([]byte{0x01, 0x02})
	p := NewParser()
	p.Feed([]byte{0x42, 0x99}) // line noise
	p.Feed(wire)

	var noise int
	for {
		f, err := p.Next()
		if err != nil {
			if Incomplete(err) {
				t.Fatalf("ran out of bytes before a frame: %v", err)
			}
			noise++
			continue
		}
		if f.Kind != KindData {
			t.Fatalf("unexpected kind %v", f.Kind)
		}
		break
	}
	if noise != 2 {
		t.Fatalf("expected 2 dropped noise bytes, got %d", noise)
	}
}
