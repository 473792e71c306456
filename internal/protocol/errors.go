package protocol

import "errors"

var (
	ErrTruncated           = errors.New("protocol: truncated envelope")
	ErrInvalidCommandType  = errors.New("protocol: invalid command type")
	ErrInvalidParams       = errors.New("protocol: invalid command params")
	ErrUnknownFunction     = errors.New("protocol: unknown function type")
	ErrCallbackIDExhausted = errors.New("protocol: no free callback id")
)
