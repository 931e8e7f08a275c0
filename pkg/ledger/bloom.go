package ledger

import (
	"github.com/bits-and-blooms/bloom/v3"

	"github.com/tcfw/blockmesh/pkg/tx"
)

const (
	txBloomEstimate = 100_000
	falsePositive   = 0.01
)

// txBloom is the negative fast path for ContainsTransaction; a miss
// is authoritative, a hit falls through to the exact index
type txBloom struct {
	f *bloom.BloomFilter
}

func newTxBloom() *txBloom {
	return &txBloom{f: bloom.NewWithEstimates(txBloomEstimate, falsePositive)}
}

func (b *txBloom) Add(r tx.Ref) {
	b.f.Add(r.Bytes())
}

func (b *txBloom) MayContain(r tx.Ref) bool {
	return b.f.Test(r.Bytes())
}
