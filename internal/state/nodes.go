package state

import (
	"sort"
	"sync"
)

// InterviewStage tracks how far the driver got learning one node.
type InterviewStage int

const (
	StageNone InterviewStage = iota
	StageProtocolInfo
	StageComplete
)

func (s InterviewStage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageProtocolInfo:
		return "protocol_info"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ProtocolSnapshot is the protocol-layer capability set of one node.
type ProtocolSnapshot struct {
	Listening     bool
	Routing       bool
	BasicClass    byte
	GenericClass  byte
	SpecificClass byte
}

// Node is one remote node's storage. Each node carries its own
// reader-writer lock so operations on different nodes never contend.
type Node struct {
	id byte

	mu     sync.RWMutex
	stage  InterviewStage
	proto  ProtocolSnapshot
	values map[string][]byte
}

func newNode(id byte) *Node {
	return &Node{id: id, values: make(map[string][]byte)}
}

func (n *Node) ID() byte { return n.id }

func (n *Node) Stage() InterviewStage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stage
}

// SetStage advances the interview stage. The interview logic is the only
// writer for a given node at a time; the lock keeps readers consistent.
func (n *Node) SetStage(s InterviewStage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stage = s
}

func (n *Node) Protocol() ProtocolSnapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.proto
}

func (n *Node) SetProtocol(p ProtocolSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.proto = p
}

// Value reads one cached value; the returned slice is a copy.
func (n *Node) Value(key string) ([]byte, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.values[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (n *Node) SetValue(key string, v []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values[key] = append([]byte(nil), v...)
}

// Registry maps node ids to node storage. Membership changes only on
// add/remove network operations, which are externally serialized; reads
// far outnumber writes.
type Registry struct {
	mu    sync.RWMutex
	nodes map[byte]*Node
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[byte]*Node)}
}

func (r *Registry) Get(id byte) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Ensure returns the node for id, creating it if absent.
func (r *Registry) Ensure(id byte) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[id]; ok {
		return n
	}
	n := newNode(id)
	r.nodes[id] = n
	return n
}

func (r *Registry) Remove(id byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// IDs returns the node ids in ascending order.
func (r *Registry) IDs() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]byte, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
