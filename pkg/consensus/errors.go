package consensus

import "github.com/pkg/errors"

var (
	ErrNotEligible       = errors.New("node is not in the non-faulty set")
	ErrDuplicateProposal = errors.New("node already proposed")
	ErrNotProposed       = errors.New("node has not proposed")
	ErrDuplicateDecision = errors.New("node already decided")
	ErrPrematureDecision = errors.New("decision must come after own proposal")
	ErrUnproposedValue   = errors.New("decided value was never proposed")
	ErrNoKnownBlock      = errors.New("node knows no ledger block")
)

var consensusErrs = []error{
	ErrNotEligible,
	ErrDuplicateProposal,
	ErrNotProposed,
	ErrDuplicateDecision,
	ErrPrematureDecision,
	ErrUnproposedValue,
	ErrNoKnownBlock,
}

// IsConsensusError reports whether err is a rejected transition
// attempt; fatal to that attempt only, other nodes are unaffected
func IsConsensusError(err error) bool {
	for _, e := range consensusErrs {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
