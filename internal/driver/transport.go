package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/meshwire/meshwire/internal/observability"
	"github.com/meshwire/meshwire/internal/protocol"
	"github.com/meshwire/meshwire/internal/protocol/frame"
)

// Transport is the sole owner of the serial link. One goroutine (Run)
// writes every outbound byte, consumes every inbound frame, and executes
// at most one command at a time; callers talk to it through the request
// queue and their single-use completion channels.
type Transport struct {
	link io.ReadWriter
	cfg  Config
	log  zerolog.Logger
	rng  *rand.Rand

	correlator *Correlator
	callbacks  *callbackPool

	requests      chan *execRequest
	frames        chan frameEvent
	notifications chan protocol.Envelope

	stopped chan struct{}
}

// Outcome carries what a completed command resolved: the response frame,
// the callback frame, or both, depending on what the command expects.
type Outcome struct {
	Response *protocol.Envelope
	Callback *protocol.Envelope
}

type execRequest struct {
	id   xid.ID
	ctx  context.Context
	cmd  protocol.Request
	done chan execResult
}

type execResult struct {
	outcome Outcome
	err     error
}

// frameEvent is one read-pump product: a decoded frame or a recoverable
// decode error. Exactly one of the fields is meaningful.
type frameEvent struct {
	frame frame.Frame
	err   error
}

func NewTransport(link io.ReadWriter, cfg Config, log zerolog.Logger) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		link:          link,
		cfg:           cfg,
		log:           log,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		correlator:    NewCorrelator(),
		callbacks:     newCallbackPool(),
		requests:      make(chan *execRequest, cfg.RequestQueue),
		frames:        make(chan frameEvent, 16),
		notifications: make(chan protocol.Envelope, cfg.NotificationBuffer),
		stopped:       make(chan struct{}),
	}
}

// Notifications is the stream of inbound envelopes no waiter claimed.
// The buffer is bounded; envelopes arriving while it is full are dropped
// and counted.
func (t *Transport) Notifications() <-chan protocol.Envelope {
	return t.notifications
}

// Correlator exposes the awaited-match registry, for waits that outlive a
// single command execution (unsolicited exchanges driven by upper layers).
func (t *Transport) Correlator() *Correlator {
	return t.correlator
}

// Execute submits cmd and suspends the caller until a terminal state is
// reached. Every submitted command resolves exactly once: an Outcome or a
// typed error.
func (t *Transport) Execute(ctx context.Context, cmd protocol.Request) (Outcome, error) {
	req := &execRequest{
		id:  xid.New(),
		ctx: ctx,
		cmd: cmd,
		// Buffered so the executor can resolve and move on even if the
		// caller already gave up.
		done: make(chan execResult, 1),
	}
	select {
	case t.requests <- req:
	case <-t.stopped:
		return Outcome{}, ErrClosed
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	select {
	case res := <-req.done:
		return res.outcome, res.err
	case <-t.stopped:
		return Outcome{}, ErrClosed
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run owns the link until ctx ends. Requests are started strictly in
// submission order; frames are handled in arrival order.
func (t *Transport) Run(ctx context.Context) error {
	defer close(t.stopped)

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go t.readPump(readCtx)

	t.log.Info().Msg("transport running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-t.frames:
			t.route(ev)
		case req := <-t.requests:
			t.execute(ctx, req)
		}
	}
}

// readPump is the only reader of the link. It feeds raw chunks to the
// parser and forwards complete frames (and recoverable decode errors) to
// the transport loop.
func (t *Transport) readPump(ctx context.Context) {
	parser := frame.NewParser()
	buf := make([]byte, 256)
	for {
		n, err := t.link.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n])
			for {
				f, perr := parser.Next()
				if perr != nil {
					if frame.Incomplete(perr) {
						break
					}
					t.deliverFrame(ctx, frameEvent{err: perr})
					continue
				}
				t.deliverFrame(ctx, frameEvent{frame: f})
			}
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				t.log.Error().Err(err).Msg("link read failed")
			}
			return
		}
	}
}

func (t *Transport) deliverFrame(ctx context.Context, ev frameEvent) {
	select {
	case t.frames <- ev:
	case <-ctx.Done():
	}
}

// route handles one frame event outside command execution. Control bytes
// with no executor waiting are stray (a late ack after a timeout) and are
// only counted.
func (t *Transport) route(ev frameEvent) {
	if ev.err != nil {
		t.handleDecodeError(ev.err)
		return
	}
	if ev.frame.Kind != frame.KindData {
		observability.RecordFrame(ev.frame.Kind.String())
		t.log.Debug().Stringer("kind", ev.frame.Kind).Msg("stray control byte")
		return
	}
	t.routeData(ev.frame)
}

// routeData acknowledges one intact data frame and hands its envelope to
// the waiter that claims it, or to the notification stream.
func (t *Transport) routeData(f frame.Frame) {
	observability.RecordFrame(frame.KindData.String())
	t.writeControl(frame.ACK)

	env, err := protocol.DecodeEnvelope(f.Payload)
	if err != nil {
		observability.RecordFrameError("envelope")
		t.log.Warn().Err(err).Msg("undecodable data frame")
		return
	}
	if t.correlator.Dispatch(env) {
		return
	}
	select {
	case t.notifications <- env:
		observability.RecordNotification(true)
	default:
		observability.RecordNotification(false)
		t.log.Warn().
			Stringer("function", env.Function).
			Msg("notification stream full, envelope dropped")
	}
}

// handleDecodeError answers link noise. A checksum mismatch is NAKed so
// the sender retransmits; anything else is just a dropped byte.
func (t *Transport) handleDecodeError(err error) {
	switch {
	case errors.Is(err, frame.ErrChecksum):
		observability.RecordFrameError("checksum")
		t.writeControl(frame.NAK)
	case errors.Is(err, frame.ErrInvalidMarker):
		observability.RecordFrameError("marker")
	default:
		observability.RecordFrameError("other")
	}
	t.log.Debug().Err(err).Msg("dropped link byte")
}

func (t *Transport) writeControl(b byte) {
	if _, err := t.link.Write([]byte{b}); err != nil {
		t.log.Error().Err(err).Hex("control", []byte{b}).Msg("link write failed")
	}
}

func (t *Transport) writeFrame(wire []byte) error {
	if _, err := t.link.Write(wire); err != nil {
		return fmt.Errorf("link write: %w", err)
	}
	return nil
}
