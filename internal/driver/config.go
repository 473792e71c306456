package driver

import "time"

// BackoffConfig defines the spacing of link-level retries.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines the driver's reliability behavior. Timeouts at the
// response and callback stages are deliberately longer than the link-ack
// timeout: the link answers within milliseconds, the network can take
// seconds.
type Config struct {
	// AckTimeout bounds the wait for the ACK/NAK/CAN control byte after
	// writing a data frame.
	AckTimeout time.Duration
	// ResponseTimeout bounds the wait for the controller's response frame.
	ResponseTimeout time.Duration
	// CallbackTimeout bounds the wait for a deferred callback frame.
	CallbackTimeout time.Duration
	// MaxAttempts bounds link-level sends of one frame. Retries apply to
	// the link handshake only, never to response or callback waits.
	MaxAttempts int
	// Backoff spaces the link-level retries.
	Backoff BackoffConfig
	// RequestQueue is the capacity of the execution request queue.
	RequestQueue int
	// NotificationBuffer is the capacity of the unsolicited notification
	// stream; overflow drops the newest envelope.
	NotificationBuffer int
}

// DefaultConfig returns the documented defaults. The exact legacy timing
// constants are not normative; these are configuration, not contract.
func DefaultConfig() Config {
	return Config{
		AckTimeout:      1600 * time.Millisecond,
		ResponseTimeout: 10 * time.Second,
		CallbackTimeout: 30 * time.Second,
		MaxAttempts:     3,
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     1100 * time.Millisecond,
			Jitter:       false,
		},
		RequestQueue:       32,
		NotificationBuffer: 64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AckTimeout <= 0 {
		c.AckTimeout = d.AckTimeout
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = d.ResponseTimeout
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = d.CallbackTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RequestQueue <= 0 {
		c.RequestQueue = d.RequestQueue
	}
	if c.NotificationBuffer <= 0 {
		c.NotificationBuffer = d.NotificationBuffer
	}
	return c
}
