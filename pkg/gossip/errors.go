package gossip

import "github.com/pkg/errors"

var (
	ErrSelfLink   = errors.New("cannot link node to itself")
	ErrSelfGossip = errors.New("cannot gossip to self")
	ErrNotPeer    = errors.New("receiver is not a peer of sender")
	ErrNotLinked  = errors.New("nodes are not linked")

	ErrUnknownBlock      = errors.New("sender has no knowledge of block")
	ErrStaleKnowledge    = errors.New("sender learned block after gossip time")
	ErrKnowledgeConflict = errors.New("knowledge learn time is write-once")
	ErrNegativeTime      = errors.New("timestamps must be non-negative")

	// ErrDropped marks a simulated partition: delivery failed, both
	// endpoints unchanged. Never fatal to the wider system
	ErrDropped = errors.New("gossip delivery dropped")
)

var networkErrs = []error{
	ErrSelfLink,
	ErrSelfGossip,
	ErrNotPeer,
	ErrNotLinked,
	ErrUnknownBlock,
	ErrStaleKnowledge,
	ErrKnowledgeConflict,
	ErrNegativeTime,
	ErrDropped,
}

// IsNetworkError reports whether err is a local gossip rejection;
// callers may retry with corrected arguments
func IsNetworkError(err error) bool {
	for _, e := range networkErrs {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
