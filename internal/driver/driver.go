package driver

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/meshwire/meshwire/internal/observability"
	"github.com/meshwire/meshwire/internal/protocol"
	"github.com/meshwire/meshwire/internal/protocol/commands"
	"github.com/meshwire/meshwire/internal/state"
)

// Driver composes the transport with the controller and node registries
// and keeps them current: initialization populates them, unsolicited
// application updates refresh them.
type Driver struct {
	transport  *Transport
	controller *state.Controller
	nodes      *state.Registry
	log        zerolog.Logger

	notifications chan protocol.Envelope
}

func New(link io.ReadWriter, cfg Config, log zerolog.Logger) *Driver {
	cfg = cfg.withDefaults()
	return &Driver{
		transport:     NewTransport(link, cfg, observability.Component(log, "transport")),
		controller:    state.NewController(),
		nodes:         state.NewRegistry(),
		log:           observability.Component(log, "driver"),
		notifications: make(chan protocol.Envelope, cfg.NotificationBuffer),
	}
}

func (d *Driver) Controller() *state.Controller { return d.controller }
func (d *Driver) Nodes() *state.Registry        { return d.nodes }

// Notifications re-publishes the transport's unsolicited stream after the
// driver applied its own bookkeeping.
func (d *Driver) Notifications() <-chan protocol.Envelope {
	return d.notifications
}

// Execute submits one command through the transport.
func (d *Driver) Execute(ctx context.Context, cmd protocol.Request) (Outcome, error) {
	return d.transport.Execute(ctx, cmd)
}

// Run drives the transport loop and the notification pump until ctx ends.
func (d *Driver) Run(ctx context.Context) error {
	go d.pumpNotifications(ctx)
	return d.transport.Run(ctx)
}

func (d *Driver) pumpNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.transport.Notifications():
			d.applyNotification(env)
			select {
			case d.notifications <- env:
			default:
				observability.RecordNotification(false)
			}
		}
	}
}

// applyNotification updates node storage from unsolicited traffic before
// handing the envelope onward.
func (d *Driver) applyNotification(env protocol.Envelope) {
	if !commands.IsApplicationUpdate(env) {
		return
	}
	update, err := commands.ParseApplicationUpdate(env)
	if err != nil {
		d.log.Warn().Err(err).Msg("undecodable application update")
		return
	}
	if update.State != commands.UpdateStateNodeInfoReceived {
		return
	}
	node := d.nodes.Ensure(update.NodeID)
	node.SetValue("node_info", update.CommandClasses)
	d.log.Debug().Uint8("node", update.NodeID).Msg("node info received")
}

// Initialize interrogates the controller and seeds the shared state:
// identity, firmware version, API capabilities, and the set of known
// nodes with their protocol snapshots.
func (d *Driver) Initialize(ctx context.Context) error {
	out, err := d.transport.Execute(ctx, commands.GetVersion{})
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	version, err := commands.ParseVersionResponse(*out.Response)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	d.controller.SetVersion(version.Library, version.LibraryType)

	out, err = d.transport.Execute(ctx, commands.MemoryGetID{})
	if err != nil {
		return fmt.Errorf("memory get id: %w", err)
	}
	id, err := commands.ParseMemoryIDResponse(*out.Response)
	if err != nil {
		return fmt.Errorf("memory get id: %w", err)
	}
	d.controller.SetIdentity(id.HomeID, id.OwnNodeID)

	out, err = d.transport.Execute(ctx, commands.GetInitData{})
	if err != nil {
		return fmt.Errorf("get init data: %w", err)
	}
	initData, err := commands.ParseInitDataResponse(*out.Response)
	if err != nil {
		return fmt.Errorf("get init data: %w", err)
	}
	d.controller.SetAPIInfo(initData.APIVersion, initData.ChipType, initData.ChipVersion)
	d.controller.SetRoles(initData.IsSecondary(), initData.IsStaticUpdateController(), false)

	for _, nodeID := range initData.NodeIDs {
		if nodeID == id.OwnNodeID {
			continue
		}
		node := d.nodes.Ensure(nodeID)
		if err := d.loadProtocolInfo(ctx, node); err != nil {
			d.log.Warn().Err(err).Uint8("node", nodeID).Msg("protocol info unavailable")
		}
	}

	d.log.Info().
		Str("library", version.Library).
		Uint32("home_id", id.HomeID).
		Uint8("own_node", id.OwnNodeID).
		Int("nodes", d.nodes.Len()).
		Msg("driver initialized")
	return nil
}

func (d *Driver) loadProtocolInfo(ctx context.Context, node *state.Node) error {
	out, err := d.transport.Execute(ctx, commands.GetNodeProtocolInfo{NodeID: node.ID()})
	if err != nil {
		return err
	}
	info, err := commands.ParseProtocolInfoResponse(*out.Response)
	if err != nil {
		return err
	}
	node.SetProtocol(state.ProtocolSnapshot{
		Listening:     info.Listening,
		Routing:       info.Routing,
		BasicClass:    info.BasicClass,
		GenericClass:  info.GenericClass,
		SpecificClass: info.SpecificClass,
	})
	node.SetStage(state.StageProtocolInfo)
	return nil
}
