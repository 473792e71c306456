package driver

import (
	"testing"

	"github.com/meshwire/meshwire/internal/protocol"
	"github.com/meshwire/meshwire/internal/testutil/testlog"
)

func matchFn(fn protocol.FunctionType) func(protocol.Envelope) bool {
	return func(env protocol.Envelope) bool { return env.Function == fn }
}

func TestDispatchPrefersOldestRegistration(t *testing.T) {
	testlog.Start(t)
	c := NewCorrelator()
	first := c.Register(matchFn(protocol.FnSendData))
	second := c.Register(matchFn(protocol.FnSendData))
	defer first.Deregister()
	defer second.Deregister()

	env := protocol.Envelope{Type: protocol.TypeResponse, Function: protocol.FnSendData}
	if !c.Dispatch(env) {
		t.Fatalf("dispatch not consumed")
	}
	select {
	case <-first.Done():
	default:
		t.Fatalf("older registrant not fulfilled")
	}
	select {
	case <-second.Done():
		t.Fatalf("younger registrant fulfilled too")
	default:
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", c.Len())
	}
}

func TestDispatchUnmatchedLeavesEntriesAlone(t *testing.T) {
	testlog.Start(t)
	c := NewCorrelator()
	aw := c.Register(matchFn(protocol.FnSendData))
	defer aw.Deregister()

	env := protocol.Envelope{Type: protocol.TypeResponse, Function: protocol.FnGetVersion}
	if c.Dispatch(env) {
		t.Fatalf("unmatched dispatch reported consumed")
	}
	if c.Len() != 1 {
		t.Fatalf("entry count changed: %d", c.Len())
	}
}

func TestDeregisteredEntryIsNotMatchable(t *testing.T) {
	testlog.Start(t)
	c := NewCorrelator()
	aw := c.Register(matchFn(protocol.FnSendData))
	aw.Deregister()

	env := protocol.Envelope{Type: protocol.TypeResponse, Function: protocol.FnSendData}
	if c.Dispatch(env) {
		t.Fatalf("canceled entry still matchable")
	}
	if c.Len() != 0 {
		t.Fatalf("registry not empty: %d", c.Len())
	}
}

func TestDeregisterIsIdempotentAndSafeAfterFulfillment(t *testing.T) {
	testlog.Start(t)
	c := NewCorrelator()
	aw := c.Register(matchFn(protocol.FnSendData))
	if !c.Dispatch(protocol.Envelope{Function: protocol.FnSendData}) {
		t.Fatalf("dispatch not consumed")
	}
	aw.Deregister()
	aw.Deregister()
	if c.Len() != 0 {
		t.Fatalf("registry not empty: %d", c.Len())
	}
}

func TestEachWaiterReceivesAtMostOneCommand(t *testing.T) {
	testlog.Start(t)
	c := NewCorrelator()
	aw := c.Register(matchFn(protocol.FnSendData))
	defer aw.Deregister()

	env := protocol.Envelope{Function: protocol.FnSendData}
	if !c.Dispatch(env) {
		t.Fatalf("first dispatch not consumed")
	}
	// The entry is gone; a second identical command finds no waiter.
	if c.Dispatch(env) {
		t.Fatalf("second dispatch consumed by a spent entry")
	}
}
