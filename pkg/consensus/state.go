package consensus

import (
	"github.com/libp2p/go-libp2p-core/peer"
)

type Step uint8

const (
	Idle Step = iota
	Proposed
	Decided
)

func (s Step) String() string {
	switch s {
	case Idle:
		return "idle"
	case Proposed:
		return "proposed"
	case Decided:
		return "decided"
	default:
		return "unknown"
	}
}

// Proposal is a node's single proposed value, created once on the
// Idle -> Proposed transition and never mutated
type Proposal struct {
	Proposer peer.ID
	Value    string
	At       int64
}

// Decision is a node's single decided value, created once on the
// Proposed -> Decided transition; Decided is terminal
type Decision struct {
	Decider peer.ID
	Value   string
	At      int64
}
