package harness

import (
	"encoding/binary"

	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/tcfw/blockmesh/pkg/ledger"
)

// key prefixes; sequenced records replay in key order
const (
	prefixBlock     = "b/"
	prefixNode      = "n/"
	prefixLink      = "l/"
	prefixKnowledge = "k/"
	prefixEvent     = "g/"
	prefixProposal  = "p/"
	prefixDecision  = "d/"
	prefixSynced    = "y/"
)

func seqKey(prefix string, seq uint64) []byte {
	k := make([]byte, 0, len(prefix)+8)
	k = append(k, prefix...)

	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)

	return append(k, b[:]...)
}

func nodeKey(id peer.ID) []byte {
	return append([]byte(prefixNode), id...)
}

func linkKey(a, b peer.ID) []byte {
	if b < a {
		a, b = b, a
	}

	k := append([]byte(prefixLink), a...)
	k = append(k, 0)

	return append(k, b...)
}

func knowledgeKey(id peer.ID, blk ledger.BlockID) []byte {
	k := append([]byte(prefixKnowledge), id...)
	k = append(k, 0)

	return append(k, blk.Bytes()...)
}

func syncedKey(id peer.ID) []byte {
	return append([]byte(prefixSynced), id...)
}

func proposalKey(id peer.ID) []byte {
	return append([]byte(prefixProposal), id...)
}

func decisionKey(id peer.ID) []byte {
	return append([]byte(prefixDecision), id...)
}

func prefixBounds(prefix string) ([]byte, []byte) {
	lower := []byte(prefix)

	upper := append([]byte(nil), lower...)
	upper[len(upper)-1]++

	return lower, upper
}
