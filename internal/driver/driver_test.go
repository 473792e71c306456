package driver

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/meshwire/meshwire/internal/protocol"
	"github.com/meshwire/meshwire/internal/protocol/frame"
	"github.com/meshwire/meshwire/internal/state"
	"github.com/meshwire/meshwire/internal/testutil/testlog"
)

func startDriver(t *testing.T) (*Driver, *harness) {
	t.Helper()
	testlog.Start(t)
	link := newFakeLink()
	drv := New(link, testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = drv.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		link.Close()
		<-done
	})
	return drv, newHarness(link)
}

// respond acks the pending request frame and answers it with a response
// envelope carrying params.
func respond(t *testing.T, h *harness, fn protocol.FunctionType, params []byte) {
	t.Helper()
	env := h.nextDataFrame(t)
	require.Equal(t, fn, env.Function)
	h.sendControl(frame.ACK)
	h.sendEnvelope(t, protocol.Envelope{Type: protocol.TypeResponse, Function: fn, Params: params})
}

func TestInitializePopulatesSharedState(t *testing.T) {
	drv, h := startDriver(t)

	initErr := make(chan error, 1)
	go func() {
		initErr <- drv.Initialize(context.Background())
	}()

	respond(t, h, protocol.FnGetVersion, append([]byte("Static Controller library 4.33\x00"), 0x01))
	respond(t, h, protocol.FnMemoryGetID, []byte{0xC1, 0x23, 0x45, 0x67, 0x01})

	initParams := []byte{0x05, 0x08, 29}
	mask := make([]byte, 29)
	mask[0] = 0x07 // nodes 1..3; node 1 is the controller itself
	initParams = append(initParams, mask...)
	initParams = append(initParams, 0x07, 0x00)
	respond(t, h, protocol.FnGetInitData, initParams)

	// Protocol info for nodes 2 and 3, in ascending order.
	respond(t, h, protocol.FnGetNodeProtocolInfo, []byte{0xC0, 0x00, 0x00, 0x04, 0x10, 0x01})
	respond(t, h, protocol.FnGetNodeProtocolInfo, []byte{0x40, 0x00, 0x00, 0x04, 0x20, 0x02})

	require.NoError(t, waitErr(t, initErr))

	info := drv.Controller().Snapshot()
	require.Equal(t, uint32(0xC1234567), info.HomeID)
	require.Equal(t, byte(1), info.OwnNodeID)
	require.Equal(t, "Static Controller library 4.33", info.Library)
	require.Equal(t, byte(0x05), info.APIVersion)
	require.True(t, info.StaticUpdateCtrl)
	require.False(t, info.Secondary)

	require.Equal(t, []byte{2, 3}, drv.Nodes().IDs())

	node2, ok := drv.Nodes().Get(2)
	require.True(t, ok)
	require.Equal(t, state.StageProtocolInfo, node2.Stage())
	require.True(t, node2.Protocol().Listening)
	require.Equal(t, byte(0x10), node2.Protocol().GenericClass)

	node3, ok := drv.Nodes().Get(3)
	require.True(t, ok)
	require.False(t, node3.Protocol().Listening)
	require.True(t, node3.Protocol().Routing)
}

func TestUnsolicitedApplicationUpdateRefreshesNodeStorage(t *testing.T) {
	drv, h := startDriver(t)

	h.sendEnvelope(t, protocol.Envelope{
		Type:     protocol.TypeRequest,
		Function: protocol.FnApplicationUpdate,
		Params:   []byte{0x84, 0x09, 0x02, 0x25, 0x26},
	})

	select {
	case env := <-drv.Notifications():
		require.Equal(t, protocol.FnApplicationUpdate, env.Function)
	case <-time.After(time.Second):
		t.Fatalf("notification not republished")
	}

	node, ok := drv.Nodes().Get(9)
	require.True(t, ok, "node storage not created from node info")
	classes, ok := node.Value("node_info")
	require.True(t, ok)
	require.Equal(t, []byte{0x25, 0x26}, classes)
}
