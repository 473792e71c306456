package driver

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshwire/meshwire/internal/observability"
	"github.com/meshwire/meshwire/internal/protocol"
	"github.com/meshwire/meshwire/internal/protocol/frame"
)

// Execution state machine:
//
//	Sending -> AwaitingLinkAck -> AwaitingResponse -> AwaitingCallback -> Completed
//	   ^              |                 |                    |
//	   +--- retry ----+                 +------ Failed ------+
//
// Only the Sending/AwaitingLinkAck pair retries; a command whose effects
// may already have happened is never resent.
type execState int

const (
	stateSending execState = iota
	stateAwaitLinkAck
	stateAwaitResponse
	stateAwaitCallback
	stateCompleted
	stateFailed
)

func (s execState) String() string {
	switch s {
	case stateSending:
		return "sending"
	case stateAwaitLinkAck:
		return "awaiting_link_ack"
	case stateAwaitResponse:
		return "awaiting_response"
	case stateAwaitCallback:
		return "awaiting_callback"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// errAckTimeout stays internal: at the link stage a timeout is a retry
// trigger, not an outcome.
var errAckTimeout = errors.New("driver: link ack timeout")

// execute runs one command to a terminal state and resolves its
// completion channel exactly once. runCtx is the transport's lifetime,
// req.ctx the caller's.
func (t *Transport) execute(runCtx context.Context, req *execRequest) {
	start := time.Now()
	log := t.log.With().
		Str("exec", req.id.String()).
		Stringer("function", req.cmd.Function()).
		Logger()

	outcome, err := t.runCommand(runCtx, req, log)
	observability.RecordCommand(req.cmd.Function().String(), resultLabel(err), time.Since(start))
	if err != nil {
		log.Debug().Err(err).Dur("took", time.Since(start)).Msg("command failed")
	} else {
		log.Debug().Dur("took", time.Since(start)).Msg("command completed")
	}
	req.done <- execResult{outcome: outcome, err: err}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrTransport):
		return "transport_failed"
	case errors.Is(err, ErrResponseTimeout):
		return "response_timeout"
	case errors.Is(err, ErrCallbackTimeout):
		return "callback_timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "failed"
	}
}

func (t *Transport) runCommand(runCtx context.Context, req *execRequest, log zerolog.Logger) (Outcome, error) {
	cmd := req.cmd
	if err := req.ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if cmd.ExpectsCallback() && cmd.CallbackID() == protocol.NoCallback {
		id, err := t.callbacks.Acquire()
		if err != nil {
			return Outcome{}, commandErr(cmd.Function(), err)
		}
		defer t.callbacks.Release(id)
		cmd.SetCallbackID(id)
	}

	params, err := cmd.EncodeParams()
	if err != nil {
		return Outcome{}, commandErr(cmd.Function(), err)
	}
	wire, err := frame.Encode(protocol.EncodeEnvelope(protocol.Envelope{
		Type:     protocol.TypeRequest,
		Function: cmd.Function(),
		Params:   params,
	}))
	if err != nil {
		return Outcome{}, commandErr(cmd.Function(), err)
	}

	if err := t.sendWithRetries(runCtx, req.ctx, wire, log); err != nil {
		return Outcome{}, commandErr(cmd.Function(), err)
	}

	var out Outcome
	if cmd.ExpectsResponse() {
		log.Trace().Stringer("state", stateAwaitResponse).Msg("state change")
		env, err := t.awaitMatch(runCtx, req.ctx, cmd.TestResponse, t.cfg.ResponseTimeout, ErrResponseTimeout)
		if err != nil {
			return Outcome{}, commandErr(cmd.Function(), err)
		}
		out.Response = &env
	}
	if cmd.ExpectsCallback() {
		log.Trace().Stringer("state", stateAwaitCallback).Msg("state change")
		env, err := t.awaitMatch(runCtx, req.ctx, cmd.TestCallback, t.cfg.CallbackTimeout, ErrCallbackTimeout)
		if err != nil {
			return Outcome{}, commandErr(cmd.Function(), err)
		}
		out.Callback = &env
	}
	return out, nil
}

// sendWithRetries drives Sending/AwaitingLinkAck. NAK, CAN, and ack
// timeouts all count against MaxAttempts; backoff spaces the resends.
func (t *Transport) sendWithRetries(runCtx, callerCtx context.Context, wire []byte, log zerolog.Logger) error {
	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			observability.RecordLinkRetry()
			if err := t.sleep(runCtx, callerCtx, NextBackoffDelay(t.cfg.Backoff, attempt, t.rng)); err != nil {
				return err
			}
		}
		log.Trace().Stringer("state", stateSending).Int("attempt", attempt).Msg("state change")
		if err := t.writeFrame(wire); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("frame write failed")
			continue
		}
		kind, err := t.awaitControl(runCtx, callerCtx)
		if err != nil {
			if errors.Is(err, errAckTimeout) {
				log.Debug().Int("attempt", attempt).Msg("link ack timeout")
				continue
			}
			return err
		}
		switch kind {
		case frame.KindAck:
			return nil
		case frame.KindNak, frame.KindCan:
			log.Debug().Int("attempt", attempt).Stringer("control", kind).Msg("frame rejected by link")
		}
	}
	return ErrTransport
}

// awaitControl waits for the link handshake byte. Data frames arriving in
// the meantime still get routed; they belong to earlier exchanges or to
// nobody.
func (t *Transport) awaitControl(runCtx, callerCtx context.Context) (frame.Kind, error) {
	timer := time.NewTimer(t.cfg.AckTimeout)
	defer timer.Stop()
	for {
		select {
		case <-runCtx.Done():
			return 0, runCtx.Err()
		case <-callerCtx.Done():
			return 0, callerCtx.Err()
		case <-timer.C:
			return 0, errAckTimeout
		case ev := <-t.frames:
			if ev.err != nil {
				t.handleDecodeError(ev.err)
				continue
			}
			if ev.frame.Kind == frame.KindData {
				t.routeData(ev.frame)
				continue
			}
			observability.RecordFrame(ev.frame.Kind.String())
			return ev.frame.Kind, nil
		}
	}
}

// awaitMatch registers pred with the correlator and waits for its match.
// The registration is scoped to this call: it is removed on every exit
// path, so a timeout or cancellation never leaves a dangling entry.
func (t *Transport) awaitMatch(runCtx, callerCtx context.Context, pred func(protocol.Envelope) bool, timeout time.Duration, timeoutErr error) (protocol.Envelope, error) {
	aw := t.correlator.Register(pred)
	defer aw.Deregister()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		// Drain a fulfilled match before routing further frames: the next
		// frame may belong to a predicate that is not registered yet.
		select {
		case env := <-aw.Done():
			return env, nil
		default:
		}
		select {
		case <-runCtx.Done():
			return protocol.Envelope{}, runCtx.Err()
		case <-callerCtx.Done():
			return protocol.Envelope{}, callerCtx.Err()
		case <-timer.C:
			return protocol.Envelope{}, timeoutErr
		case env := <-aw.Done():
			return env, nil
		case ev := <-t.frames:
			if ev.err != nil {
				t.handleDecodeError(ev.err)
				continue
			}
			if ev.frame.Kind != frame.KindData {
				observability.RecordFrame(ev.frame.Kind.String())
				continue
			}
			// May fulfill aw through the correlator; picked up on the
			// next loop turn.
			t.routeData(ev.frame)
		}
	}
}

func (t *Transport) sleep(runCtx, callerCtx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-runCtx.Done():
		return runCtx.Err()
	case <-callerCtx.Done():
		return callerCtx.Err()
	case <-timer.C:
		return nil
	}
}
