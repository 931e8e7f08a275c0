package gossip

import (
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/pkg/errors"

	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/peering"
)

// Event is one logical block delivery between linked peers. The
// event log is append-only; traffic metrics are derived from it
type Event struct {
	Sender   peer.ID
	Receiver peer.ID
	Block    ledger.BlockID
	Size     uint64
	At       int64
}

// Traffic is the derived per-node byte accounting
type Traffic struct {
	Sent uint64
	Recv uint64
}

// Network simulates block dissemination over the registry's peer
// topology. Knowledge records are write-once per (node, block) pair
// and never revoked
type Network struct {
	mu sync.RWMutex

	reg *peering.Registry

	events    []Event
	knowledge map[peer.ID]map[ledger.BlockID]int64
	traffic   map[peer.ID]*Traffic
}

func NewNetwork(reg *peering.Registry) *Network {
	return &Network{
		reg:       reg,
		knowledge: make(map[peer.ID]map[ledger.BlockID]int64),
		traffic:   make(map[peer.ID]*Traffic),
	}
}

// AddPeerLink links a and b symmetrically in one step
func (n *Network) AddPeerLink(a, b peer.ID) error {
	if a == b {
		return ErrSelfLink
	}

	na, err := n.reg.Node(a)
	if err != nil {
		return err
	}

	nb, err := n.reg.Node(b)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	na.Peers[b] = struct{}{}
	nb.Peers[a] = struct{}{}

	return nil
}

// RemovePeerLink removes the symmetric link between a and b
func (n *Network) RemovePeerLink(a, b peer.ID) error {
	if a == b {
		return ErrSelfLink
	}

	na, err := n.reg.Node(a)
	if err != nil {
		return err
	}

	nb, err := n.reg.Node(b)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := na.Peers[b]; !ok {
		return errors.Wrapf(ErrNotLinked, "%s and %s", a, b)
	}

	delete(na.Peers, b)
	delete(nb.Peers, a)

	return nil
}

// RecordKnowledge upserts a (node, block) learn time. Re-recording
// the same time is a no-op; a differing time fails, knowledge is
// write-once
func (n *Network) RecordKnowledge(id peer.ID, blk ledger.BlockID, at int64) error {
	if at < 0 {
		return ErrNegativeTime
	}

	if _, err := n.reg.Node(id); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	return n.recordKnowledgeLocked(id, blk, at)
}

func (n *Network) recordKnowledgeLocked(id peer.ID, blk ledger.BlockID, at int64) error {
	known, ok := n.knowledge[id]
	if !ok {
		known = make(map[ledger.BlockID]int64)
		n.knowledge[id] = known
	}

	if prev, ok := known[blk]; ok {
		if prev != at {
			return errors.Wrapf(ErrKnowledgeConflict, "node %s block %s learned at %d", id, blk, prev)
		}
		return nil
	}

	known[blk] = at

	return nil
}

// SendGossip disseminates blk from sender to receiver at the given
// logical time. The sender must already know the block at or before
// that time; on success the receiver learns it and both traffic
// totals grow by size
func (n *Network) SendGossip(sender, receiver peer.ID, blk ledger.BlockID, size uint64, at int64) error {
	if sender == receiver {
		return ErrSelfGossip
	}

	if at < 0 {
		return ErrNegativeTime
	}

	sn, err := n.reg.Node(sender)
	if err != nil {
		return err
	}

	if _, err := n.reg.Node(receiver); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !sn.IsPeer(receiver) {
		return errors.Wrapf(ErrNotPeer, "%s -> %s", sender, receiver)
	}

	learned, ok := n.knowledge[sender][blk]
	if !ok {
		return errors.Wrapf(ErrUnknownBlock, "node %s block %s", sender, blk)
	}

	if learned > at {
		return errors.Wrapf(ErrStaleKnowledge, "learned %d > gossip %d", learned, at)
	}

	if err := n.recordKnowledgeLocked(receiver, blk, at); err != nil {
		return err
	}

	n.events = append(n.events, Event{
		Sender:   sender,
		Receiver: receiver,
		Block:    blk,
		Size:     size,
		At:       at,
	})

	n.trafficLocked(sender).Sent += size
	n.trafficLocked(receiver).Recv += size

	return nil
}

func (n *Network) trafficLocked(id peer.ID) *Traffic {
	t, ok := n.traffic[id]
	if !ok {
		t = &Traffic{}
		n.traffic[id] = t
	}

	return t
}

// Knows returns a node's learn time for blk
func (n *Network) Knows(id peer.ID, blk ledger.BlockID) (int64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	at, ok := n.knowledge[id][blk]
	return at, ok
}

// Known snapshots all block ids the node has learned
func (n *Network) Known(id peer.ID) []ledger.BlockID {
	n.mu.RLock()
	defer n.mu.RUnlock()

	blks := make([]ledger.BlockID, 0, len(n.knowledge[id]))
	for b := range n.knowledge[id] {
		blks = append(blks, b)
	}

	return blks
}

// HasAny reports whether the node has learned at least one block;
// the consensus decide precondition
func (n *Network) HasAny(id peer.ID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.knowledge[id]) > 0
}

func (n *Network) Metrics(id peer.ID) Traffic {
	n.mu.RLock()
	defer n.mu.RUnlock()

	t, ok := n.traffic[id]
	if !ok {
		return Traffic{}
	}

	return *t
}

// RestoreEvents reloads a persisted event log, rebuilding the
// derived traffic totals. Preconditions were checked when the events
// were first sent
func (n *Network) RestoreEvents(evts []Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, e := range evts {
		n.events = append(n.events, e)
		n.trafficLocked(e.Sender).Sent += e.Size
		n.trafficLocked(e.Receiver).Recv += e.Size
	}
}

func (n *Network) Events() []Event {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return append([]Event(nil), n.events...)
}
