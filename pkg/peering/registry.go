package peering

import (
	"sort"
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/pkg/errors"

	"github.com/tcfw/blockmesh/pkg/ledger"
)

// DefaultStorageHighWater is the storage capacity a full node must
// exceed to register
const DefaultStorageHighWater int64 = 1 << 30

type Registry struct {
	mu sync.RWMutex

	nodes     map[peer.ID]*Node
	highWater int64
}

type RegistryOption func(*Registry)

func WithStorageHighWater(n int64) RegistryOption {
	return func(r *Registry) {
		r.highWater = n
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		nodes:     make(map[peer.ID]*Node),
		highWater: DefaultStorageHighWater,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterNode validates role and capacity attributes before creating
// the identity. Archive implies full; full nodes must exceed the
// storage high-water mark
func (r *Registry) RegisterNode(id peer.ID, kind Kind, roles []Role, storageCap, bandwidthCap int64) (*Node, error) {
	if kind != KindFull && kind != KindLight {
		return nil, ErrUnknownKind
	}

	if len(roles) == 0 {
		return nil, ErrNoRoles
	}

	rset := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		switch role {
		case RoleValidator, RoleMiner, RoleArchive, RoleObserver:
		default:
			return nil, ErrUnknownRole
		}
		rset[role] = struct{}{}
	}

	if _, ok := rset[RoleArchive]; ok && kind != KindFull {
		return nil, ErrArchiveRequiresFull
	}

	if storageCap < 0 || bandwidthCap < 0 {
		return nil, ErrNegativeCapacity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == KindFull && storageCap <= r.highWater {
		return nil, errors.Wrapf(ErrStorageBelowMark, "%d <= %d", storageCap, r.highWater)
	}

	if _, ok := r.nodes[id]; ok {
		return nil, ErrDuplicateNode
	}

	n := &Node{
		Id:           id,
		Kind:         kind,
		Roles:        rset,
		Peers:        make(map[peer.ID]struct{}),
		Sync:         make(map[ledger.BlockID]struct{}),
		StorageCap:   storageCap,
		BandwidthCap: bandwidthCap,
	}

	r.nodes[id] = n

	return n, nil
}

func (r *Registry) Node(id peer.ID) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNode, "%s", id)
	}

	return n, nil
}

func (r *Registry) Nodes() []peer.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]peer.ID, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (r *Registry) MarkFaulty(id peer.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id]
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "%s", id)
	}

	n.Faulty = true

	return nil
}

// IsFaulty reads the node's faulty flag under the registry lock
func (r *Registry) IsFaulty(id peer.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	if !ok {
		return false, errors.Wrapf(ErrUnknownNode, "%s", id)
	}

	return n.Faulty, nil
}

// NonFaulty is the consensus-eligible node set
func (r *Registry) NonFaulty() []peer.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]peer.ID, 0, len(r.nodes))
	for id, n := range r.nodes {
		if n.Faulty {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// SyncFromKnowledge materializes a node's sync set from its
// accumulated gossip knowledge. Gossip never writes sync sets
// directly; this is the external bookkeeping step
func (r *Registry) SyncFromKnowledge(id peer.ID, known []ledger.BlockID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id]
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "%s", id)
	}

	for _, b := range known {
		n.Sync[b] = struct{}{}
	}

	return nil
}

// ValidateSyncSets is the standing full/light invariant check: a full
// node's sync set must equal the known block universe, a light node's
// must be a strict subset of it. An empty universe passes for every
// kind: the unknown-sync check already forces all sync sets empty, and
// the strictness rule only binds once there is something to sync
func (r *Registry) ValidateSyncSets(universe []ledger.BlockID) error {
	uni := make(map[ledger.BlockID]struct{}, len(universe))
	for _, b := range universe {
		uni[b] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, n := range r.nodes {
		for b := range n.Sync {
			if _, ok := uni[b]; !ok {
				return errors.Wrapf(ErrSyncSetUnknownSync, "node %s block %s", id, b)
			}
		}

		switch n.Kind {
		case KindFull:
			if len(n.Sync) != len(uni) {
				return errors.Wrapf(ErrSyncSetIncomplete, "node %s has %d of %d", id, len(n.Sync), len(uni))
			}
		case KindLight:
			if len(n.Sync) >= len(uni) && len(uni) > 0 {
				return errors.Wrapf(ErrSyncSetNotSubset, "node %s", id)
			}
		}
	}

	return nil
}
