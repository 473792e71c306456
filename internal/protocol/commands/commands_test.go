package commands

import (
	"bytes"
	"errors"
	"testing"

	"github.com/meshwire/meshwire/internal/protocol"
)

func TestGetVersionResponse(t *testing.T) {
	cmd := GetVersion{}
	if !cmd.ExpectsResponse() || cmd.ExpectsCallback() {
		t.Fatalf("unexpected expectations")
	}
	env := protocol.Envelope{
		Type:     protocol.TypeResponse,
		Function: protocol.FnGetVersion,
		Params:   append([]byte("Static Controller library 4.33\x00"), 0x01),
	}
	if !cmd.TestResponse(env) {
		t.Fatalf("response not recognized")
	}
	if cmd.TestResponse(protocol.Envelope{Type: protocol.TypeRequest, Function: protocol.FnGetVersion}) {
		t.Fatalf("request-type envelope accepted as response")
	}
	v, err := ParseVersionResponse(env)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Library != "Static Controller library 4.33" || v.LibraryType != 0x01 {
		t.Fatalf("unexpected version: %+v", v)
	}
}

func TestParseMemoryIDResponse(t *testing.T) {
	env := protocol.Envelope{
		Type:     protocol.TypeResponse,
		Function: protocol.FnMemoryGetID,
		Params:   []byte{0xC1, 0x23, 0x45, 0x67, 0x01},
	}
	id, err := ParseMemoryIDResponse(env)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.HomeID != 0xC1234567 || id.OwnNodeID != 1 {
		t.Fatalf("unexpected id: %+v", id)
	}
	if _, err := ParseMemoryIDResponse(protocol.Envelope{Params: []byte{1, 2}}); !errors.Is(err, protocol.ErrInvalidParams) {
		t.Fatalf("short params err=%v", err)
	}
}

func TestParseInitDataResponse(t *testing.T) {
	params := make([]byte, 0, 3+29+2)
	params = append(params, 0x05, 0x08, 29)
	mask := make([]byte, 29)
	mask[0] = 0x07  // nodes 1..3
	mask[1] = 0x01  // node 9
	params = append(params, mask...)
	params = append(params, 0x07, 0x00)

	d, err := ParseInitDataResponse(protocol.Envelope{Params: params})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !bytes.Equal(d.NodeIDs, []byte{1, 2, 3, 9}) {
		t.Fatalf("unexpected node ids: %v", d.NodeIDs)
	}
	if !d.IsStaticUpdateController() || d.IsSecondary() {
		t.Fatalf("unexpected capabilities: 0x%02x", d.Capabilities)
	}
	if d.ChipType != 0x07 {
		t.Fatalf("unexpected chip type: 0x%02x", d.ChipType)
	}
}

func TestParseInitDataRejectsBadMaskLength(t *testing.T) {
	_, err := ParseInitDataResponse(protocol.Envelope{Params: []byte{0x05, 0x00, 7, 0, 0, 0, 0, 0, 0, 0, 1, 2}})
	if !errors.Is(err, protocol.ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestParseProtocolInfoResponse(t *testing.T) {
	info, err := ParseProtocolInfoResponse(protocol.Envelope{
		Params: []byte{0xC0, 0x00, 0x00, 0x04, 0x10, 0x01},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !info.Listening || !info.Routing {
		t.Fatalf("capability bits not decoded: %+v", info)
	}
	if info.BasicClass != 0x04 || info.GenericClass != 0x10 || info.SpecificClass != 0x01 {
		t.Fatalf("classes not decoded: %+v", info)
	}
}

func TestSendDataEncodeAndPredicates(t *testing.T) {
	cmd := &SendData{NodeID: 7, Data: []byte{0x25, 0x01, 0xFF}, TxOptions: TxOptionAck | TxOptionAutoRoute}
	cmd.SetCallbackID(0x21)

	params, err := cmd.EncodeParams()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{7, 3, 0x25, 0x01, 0xFF, TxOptionAck | TxOptionAutoRoute, 0x21}
	if !bytes.Equal(params, want) {
		t.Fatalf("params\n got % x\nwant % x", params, want)
	}

	if !cmd.ExpectsResponse() || !cmd.ExpectsCallback() {
		t.Fatalf("unexpected expectations")
	}
	resp := protocol.Envelope{Type: protocol.TypeResponse, Function: protocol.FnSendData, Params: []byte{0x01}}
	if !cmd.TestResponse(resp) {
		t.Fatalf("response not recognized")
	}
	cb := protocol.Envelope{Type: protocol.TypeRequest, Function: protocol.FnSendData, Params: []byte{0x21, TxStatusOK}}
	if !cmd.TestCallback(cb) {
		t.Fatalf("callback not recognized")
	}
	other := protocol.Envelope{Type: protocol.TypeRequest, Function: protocol.FnSendData, Params: []byte{0x22, TxStatusOK}}
	if cmd.TestCallback(other) {
		t.Fatalf("callback with foreign id accepted")
	}

	accepted, err := ParseSendDataResponse(resp)
	if err != nil || !accepted {
		t.Fatalf("response parse: accepted=%v err=%v", accepted, err)
	}
	status, err := ParseSendDataCallback(cb)
	if err != nil || status != TxStatusOK {
		t.Fatalf("callback parse: status=0x%02x err=%v", status, err)
	}
}

func TestSendDataEncodeRejectsEmptyPayload(t *testing.T) {
	cmd := &SendData{NodeID: 7}
	if _, err := cmd.EncodeParams(); !errors.Is(err, protocol.ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestParseApplicationUpdate(t *testing.T) {
	env := protocol.Envelope{
		Type:     protocol.TypeRequest,
		Function: protocol.FnApplicationUpdate,
		Params:   []byte{UpdateStateNodeInfoReceived, 0x09, 0x02, 0x25, 0x26},
	}
	if !IsApplicationUpdate(env) {
		t.Fatalf("not recognized as application update")
	}
	u, err := ParseApplicationUpdate(env)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.NodeID != 9 || !bytes.Equal(u.CommandClasses, []byte{0x25, 0x26}) {
		t.Fatalf("unexpected update: %+v", u)
	}
}
