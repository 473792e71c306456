package driver

import (
	"errors"
	"fmt"

	"github.com/meshwire/meshwire/internal/protocol"
)

var (
	// ErrTransport is the terminal link-handshake failure: every attempt
	// ended in NAK, CAN, or an ack timeout.
	ErrTransport = errors.New("driver: link handshake failed")
	// ErrResponseTimeout means no response frame matched within the
	// response deadline. Not retried: the command may already have acted.
	ErrResponseTimeout = errors.New("driver: response timeout")
	// ErrCallbackTimeout means no callback frame matched within the
	// callback deadline. Not retried, same reasoning.
	ErrCallbackTimeout = errors.New("driver: callback timeout")
	// ErrClosed means the transport loop is not running.
	ErrClosed = errors.New("driver: transport closed")
)

// CommandError attributes a failure to the command that was executing.
type CommandError struct {
	Function protocol.FunctionType
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Function, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func commandErr(fn protocol.FunctionType, err error) error {
	return &CommandError{Function: fn, Err: err}
}
