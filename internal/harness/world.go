package harness

import (
	"github.com/cockroachdb/pebble"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tcfw/blockmesh/internal/utils/logging"
	"github.com/tcfw/blockmesh/pkg/consensus"
	"github.com/tcfw/blockmesh/pkg/gossip"
	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/peering"
)

// World is the CLI harness state: the live core components plus a
// pebble log so successive invocations compose. Every record is
// validated through the real components again on reopen
type World struct {
	db *pebble.DB

	Reg *peering.Registry
	Net *gossip.Network
	Eng *consensus.Engine
	Led *ledger.Store

	blockSeq uint64
	eventSeq uint64
}

type nodeRec struct {
	Id        string  `msgpack:"i"`
	Kind      uint8   `msgpack:"k"`
	Roles     []uint8 `msgpack:"r"`
	Storage   int64   `msgpack:"s"`
	Bandwidth int64   `msgpack:"b"`
	Faulty    bool    `msgpack:"f"`
}

type linkRec struct {
	A string `msgpack:"a"`
	B string `msgpack:"b"`
}

type knowRec struct {
	Node  string         `msgpack:"n"`
	Block ledger.BlockID `msgpack:"b"`
	At    int64          `msgpack:"t"`
}

// stored records keep node ids as plain strings; peer.ID's binary
// form is validated as a multihash on decode and harness ids are
// free-form
type eventRec struct {
	Sender   string         `msgpack:"s"`
	Receiver string         `msgpack:"r"`
	Block    ledger.BlockID `msgpack:"b"`
	Size     uint64         `msgpack:"z"`
	At       int64          `msgpack:"t"`
}

type proposalRec struct {
	Node  string `msgpack:"n"`
	Value string `msgpack:"v"`
	At    int64  `msgpack:"t"`
}

type decisionRec struct {
	Node  string `msgpack:"n"`
	Value string `msgpack:"v"`
	At    int64  `msgpack:"t"`
}

// Open loads (or creates) the world at dir and replays its records
// through the core components
func Open(dir string, regOpts ...peering.RegistryOption) (*World, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening world store")
	}

	reg := peering.NewRegistry(regOpts...)
	net := gossip.NewNetwork(reg)

	w := &World{
		db:  db,
		Reg: reg,
		Net: net,
		Eng: consensus.NewEngine(reg, net, logging.Entry()),
		Led: ledger.NewStore(),
	}

	if err := w.replay(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "replaying world")
	}

	return w, nil
}

func (w *World) Close() error {
	return w.db.Close()
}

func (w *World) replay() error {
	if err := w.replayNodes(); err != nil {
		return err
	}

	if err := w.replayLinks(); err != nil {
		return err
	}

	if err := w.replayBlocks(); err != nil {
		return err
	}

	if err := w.replayKnowledge(); err != nil {
		return err
	}

	if err := w.replayEvents(); err != nil {
		return err
	}

	if err := w.replaySynced(); err != nil {
		return err
	}

	return w.replayConsensus()
}

func (w *World) each(prefix string, fn func(key, val []byte) error) error {
	lower, upper := prefixBounds(prefix)

	iter := w.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}

	return iter.Error()
}

func (w *World) replayNodes() error {
	return w.each(prefixNode, func(_, val []byte) error {
		rec := &nodeRec{}
		if err := msgpack.Unmarshal(val, rec); err != nil {
			return errors.Wrap(err, "unmarshaling node")
		}

		roles := make([]peering.Role, 0, len(rec.Roles))
		for _, r := range rec.Roles {
			roles = append(roles, peering.Role(r))
		}

		_, err := w.Reg.RegisterNode(peer.ID(rec.Id), peering.Kind(rec.Kind), roles, rec.Storage, rec.Bandwidth)
		if err != nil {
			return errors.Wrap(err, "restoring node")
		}

		if rec.Faulty {
			return w.Reg.MarkFaulty(peer.ID(rec.Id))
		}

		return nil
	})
}

func (w *World) replayLinks() error {
	return w.each(prefixLink, func(_, val []byte) error {
		rec := &linkRec{}
		if err := msgpack.Unmarshal(val, rec); err != nil {
			return errors.Wrap(err, "unmarshaling link")
		}

		return w.Net.AddPeerLink(peer.ID(rec.A), peer.ID(rec.B))
	})
}

func (w *World) replayBlocks() error {
	return w.each(prefixBlock, func(_, val []byte) error {
		b := &ledger.Block{}
		if err := msgpack.Unmarshal(val, b); err != nil {
			return errors.Wrap(err, "unmarshaling block")
		}

		w.blockSeq++

		return w.Led.AppendBlock(b)
	})
}

func (w *World) replayKnowledge() error {
	return w.each(prefixKnowledge, func(_, val []byte) error {
		rec := &knowRec{}
		if err := msgpack.Unmarshal(val, rec); err != nil {
			return errors.Wrap(err, "unmarshaling knowledge")
		}

		return w.Net.RecordKnowledge(peer.ID(rec.Node), rec.Block, rec.At)
	})
}

func (w *World) replayEvents() error {
	var evts []gossip.Event

	err := w.each(prefixEvent, func(_, val []byte) error {
		rec := &eventRec{}
		if err := msgpack.Unmarshal(val, rec); err != nil {
			return errors.Wrap(err, "unmarshaling event")
		}

		evts = append(evts, gossip.Event{
			Sender:   peer.ID(rec.Sender),
			Receiver: peer.ID(rec.Receiver),
			Block:    rec.Block,
			Size:     rec.Size,
			At:       rec.At,
		})
		w.eventSeq++

		return nil
	})
	if err != nil {
		return err
	}

	w.Net.RestoreEvents(evts)

	return nil
}

func (w *World) replaySynced() error {
	return w.each(prefixSynced, func(key, _ []byte) error {
		id := peer.ID(key[len(prefixSynced):])

		return w.Reg.SyncFromKnowledge(id, w.Net.Known(id))
	})
}

func (w *World) replayConsensus() error {
	err := w.each(prefixProposal, func(_, val []byte) error {
		rec := &proposalRec{}
		if err := msgpack.Unmarshal(val, rec); err != nil {
			return errors.Wrap(err, "unmarshaling proposal")
		}

		w.Eng.Restore(&consensus.Proposal{Proposer: peer.ID(rec.Node), Value: rec.Value, At: rec.At}, nil)

		return nil
	})
	if err != nil {
		return err
	}

	return w.each(prefixDecision, func(_, val []byte) error {
		rec := &decisionRec{}
		if err := msgpack.Unmarshal(val, rec); err != nil {
			return errors.Wrap(err, "unmarshaling decision")
		}

		w.Eng.Restore(nil, &consensus.Decision{Decider: peer.ID(rec.Node), Value: rec.Value, At: rec.At})

		return nil
	})
}

func (w *World) put(key []byte, rec interface{}) error {
	val, err := msgpack.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshaling record")
	}

	return errors.Wrap(w.db.Set(key, val, pebble.Sync), "persisting record")
}

// RegisterNode registers and persists a node identity
func (w *World) RegisterNode(id peer.ID, kind peering.Kind, roles []peering.Role, storageCap, bandwidthCap int64) error {
	if _, err := w.Reg.RegisterNode(id, kind, roles, storageCap, bandwidthCap); err != nil {
		return err
	}

	rs := make([]uint8, 0, len(roles))
	for _, r := range roles {
		rs = append(rs, uint8(r))
	}

	return w.put(nodeKey(id), &nodeRec{
		Id:        string(id),
		Kind:      uint8(kind),
		Roles:     rs,
		Storage:   storageCap,
		Bandwidth: bandwidthCap,
	})
}

// MarkFaulty removes the node from the non-faulty set and persists it
func (w *World) MarkFaulty(id peer.ID) error {
	if err := w.Reg.MarkFaulty(id); err != nil {
		return err
	}

	n, err := w.Reg.Node(id)
	if err != nil {
		return err
	}

	rs := make([]uint8, 0, len(n.Roles))
	for r := range n.Roles {
		rs = append(rs, uint8(r))
	}

	return w.put(nodeKey(id), &nodeRec{
		Id:        string(id),
		Kind:      uint8(n.Kind),
		Roles:     rs,
		Storage:   n.StorageCap,
		Bandwidth: n.BandwidthCap,
		Faulty:    true,
	})
}

// SyncFromKnowledge materializes the node's sync set from its gossip
// knowledge and remembers to redo so on replay
func (w *World) SyncFromKnowledge(id peer.ID) error {
	if err := w.Reg.SyncFromKnowledge(id, w.Net.Known(id)); err != nil {
		return err
	}

	return errors.Wrap(w.db.Set(syncedKey(id), nil, pebble.Sync), "persisting sync marker")
}

// AppendBlock validates, inserts and persists a block in append order
func (w *World) AppendBlock(b *ledger.Block) error {
	if err := w.Led.AppendBlock(b); err != nil {
		return err
	}

	w.blockSeq++

	return w.put(seqKey(prefixBlock, w.blockSeq), b)
}

func (w *World) AddPeerLink(a, b peer.ID) error {
	if err := w.Net.AddPeerLink(a, b); err != nil {
		return err
	}

	return w.put(linkKey(a, b), &linkRec{A: string(a), B: string(b)})
}

func (w *World) RemovePeerLink(a, b peer.ID) error {
	if err := w.Net.RemovePeerLink(a, b); err != nil {
		return err
	}

	return errors.Wrap(w.db.Delete(linkKey(a, b), pebble.Sync), "removing link")
}

func (w *World) RecordKnowledge(id peer.ID, blk ledger.BlockID, at int64) error {
	if err := w.Net.RecordKnowledge(id, blk, at); err != nil {
		return err
	}

	return w.put(knowledgeKey(id, blk), &knowRec{Node: string(id), Block: blk, At: at})
}

// SendGossip performs the hop and persists both the event and the
// receiver's new knowledge record
func (w *World) SendGossip(sender, receiver peer.ID, blk ledger.BlockID, size uint64, at int64) error {
	if err := w.Net.SendGossip(sender, receiver, blk, size, at); err != nil {
		return err
	}

	w.eventSeq++

	err := w.put(seqKey(prefixEvent, w.eventSeq), &eventRec{
		Sender:   string(sender),
		Receiver: string(receiver),
		Block:    blk,
		Size:     size,
		At:       at,
	})
	if err != nil {
		return err
	}

	return w.put(knowledgeKey(receiver, blk), &knowRec{Node: string(receiver), Block: blk, At: at})
}

func (w *World) Propose(id peer.ID, value string, t int64) error {
	if err := w.Eng.Propose(id, value, t); err != nil {
		return err
	}

	return w.put(proposalKey(id), &proposalRec{Node: string(id), Value: value, At: t})
}

func (w *World) Decide(id peer.ID, value string, t int64) error {
	if err := w.Eng.Decide(id, value, t); err != nil {
		return err
	}

	return w.put(decisionKey(id), &decisionRec{Node: string(id), Value: value, At: t})
}
