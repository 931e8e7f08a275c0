package ledger

import (
	"bytes"
	"sort"

	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"

	"github.com/tcfw/blockmesh/pkg/tx"
)

// MerkleRoot folds the tx set into a deterministic root digest.
// Refs are sorted first so the root is independent of caller order
func MerkleRoot(refs []tx.Ref) ([]byte, error) {
	sorted := append([]tx.Ref(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Bytes(), sorted[j].Bytes()) < 0
	})

	leaves := make([][]byte, 0, len(sorted))
	for _, r := range sorted {
		h, err := sumLeaf(r.Bytes())
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, h)
	}

	if len(leaves) == 0 {
		return sumLeaf(nil)
	}

	for len(leaves) > 1 {
		next := make([][]byte, 0, (len(leaves)+1)/2)

		for i := 0; i < len(leaves); i += 2 {
			if i+1 == len(leaves) {
				// odd leaf carries up unhashed
				next = append(next, leaves[i])
				continue
			}

			joined := make([]byte, 0, len(leaves[i])+len(leaves[i+1]))
			joined = append(joined, leaves[i]...)
			joined = append(joined, leaves[i+1]...)

			h, err := sumLeaf(joined)
			if err != nil {
				return nil, err
			}

			next = append(next, h)
		}

		leaves = next
	}

	return leaves[0], nil
}

func sumLeaf(d []byte) ([]byte, error) {
	h, err := multihash.Sum(d, multihash.SHA3_256, multihash.DefaultLengths[multihash.SHA3_256])
	if err != nil {
		return nil, errors.Wrap(err, "hashing merkle leaf")
	}

	return []byte(h), nil
}
