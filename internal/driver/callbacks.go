package driver

import (
	"sync"

	"github.com/meshwire/meshwire/internal/protocol"
)

// callbackPool hands out the 8-bit callback ids correlating deferred
// callbacks to their requests. The value space is tiny and recycled;
// uniqueness only has to hold among ids currently in flight. Zero is
// reserved for "no callback".
type callbackPool struct {
	mu    sync.Mutex
	next  byte
	inUse map[byte]struct{}
}

func newCallbackPool() *callbackPool {
	return &callbackPool{
		next:  1,
		inUse: make(map[byte]struct{}),
	}
}

// Acquire returns a callback id not currently in flight.
func (p *callbackPool) Acquire() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < 255; i++ {
		id := p.next
		p.next++
		if p.next == 0 {
			p.next = 1
		}
		if _, taken := p.inUse[id]; taken {
			continue
		}
		p.inUse[id] = struct{}{}
		return id, nil
	}
	return 0, protocol.ErrCallbackIDExhausted
}

// Release returns id to the pool once its command reached a terminal
// state. Releasing NoCallback is a no-op.
func (p *callbackPool) Release(id byte) {
	if id == protocol.NoCallback {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, id)
}
