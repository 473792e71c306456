package driver

import (
	"sync"

	"github.com/meshwire/meshwire/internal/protocol"
)

// Correlator matches inbound envelopes to the unique waiter expecting
// them. The wire carries no universal transaction id, so ownership is
// decided by predicates evaluated in registration order: when two live
// predicates both match, the older registrant wins.
type Correlator struct {
	mu      sync.Mutex
	nextID  uint64
	entries []*awaitEntry
}

type awaitEntry struct {
	id   uint64
	pred func(protocol.Envelope) bool
	ch   chan protocol.Envelope
}

// Await is the registration handle held by one waiter. Deregister must
// run on every exit path of the owning scope; fulfillment and
// deregistration are the only two ways an entry leaves the registry.
type Await struct {
	c  *Correlator
	id uint64
	ch chan protocol.Envelope
}

func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Register appends an entry for pred and returns its handle.
func (c *Correlator) Register(pred func(protocol.Envelope) bool) *Await {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	e := &awaitEntry{
		id:   c.nextID,
		pred: pred,
		// Buffered so Dispatch never blocks on a slow or departed waiter.
		ch: make(chan protocol.Envelope, 1),
	}
	c.entries = append(c.entries, e)
	return &Await{c: c, id: e.id, ch: e.ch}
}

// Dispatch offers env to the live entries in registration order. The
// first match is removed and fulfilled; true means env was consumed.
func (c *Correlator) Dispatch(env protocol.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.pred(env) {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			e.ch <- env
			return true
		}
	}
	return false
}

// Len reports the number of live entries.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Done yields the matched envelope. The channel never closes; a waiter
// that stops listening must Deregister.
func (a *Await) Done() <-chan protocol.Envelope {
	return a.ch
}

// Deregister removes the entry if it is still live. Safe to call after
// fulfillment and safe to call more than once.
func (a *Await) Deregister() {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	for i, e := range a.c.entries {
		if e.id == a.id {
			a.c.entries = append(a.c.entries[:i], a.c.entries[i+1:]...)
			return
		}
	}
}
