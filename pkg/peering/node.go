package peering

import (
	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/tcfw/blockmesh/pkg/ledger"
)

type Kind uint8

const (
	KindFull Kind = iota + 1
	KindLight
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindLight:
		return "light"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "full":
		return KindFull, nil
	case "light":
		return KindLight, nil
	default:
		return 0, ErrUnknownKind
	}
}

type Role uint8

const (
	RoleValidator Role = iota + 1
	RoleMiner
	RoleArchive
	RoleObserver
)

func (r Role) String() string {
	switch r {
	case RoleValidator:
		return "validator"
	case RoleMiner:
		return "miner"
	case RoleArchive:
		return "archive"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "validator":
		return RoleValidator, nil
	case "miner":
		return RoleMiner, nil
	case "archive":
		return RoleArchive, nil
	case "observer":
		return RoleObserver, nil
	default:
		return 0, ErrUnknownRole
	}
}

// Node is a registered peer identity. Peers and Sync are mutated only
// through the registry and the gossip layer's bookkeeping steps
type Node struct {
	Id    peer.ID
	Kind  Kind
	Roles map[Role]struct{}

	Peers map[peer.ID]struct{}
	Sync  map[ledger.BlockID]struct{}

	StorageCap   int64
	BandwidthCap int64

	Faulty bool
}

func (n *Node) HasRole(r Role) bool {
	_, ok := n.Roles[r]
	return ok
}

func (n *Node) IsPeer(id peer.ID) bool {
	_, ok := n.Peers[id]
	return ok
}
