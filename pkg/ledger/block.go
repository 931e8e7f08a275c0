package ledger

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tcfw/blockmesh/pkg/tx"
)

const (
	Version uint32 = 1
)

type BlockID cid.Cid

func (id BlockID) String() string {
	return cid.Cid(id).String()
}

func (id BlockID) Bytes() []byte {
	return cid.Cid(id).Bytes()
}

func (id BlockID) Defined() bool {
	return cid.Cid(id) != cid.Undef
}

func (id BlockID) MarshalBinary() ([]byte, error) {
	return cid.Cid(id).MarshalBinary()
}

func (id *BlockID) UnmarshalBinary(data []byte) error {
	c := cid.Cid{}
	if err := c.UnmarshalBinary(data); err != nil {
		return err
	}

	*id = BlockID(c)

	return nil
}

func ParseBlockID(s string) (BlockID, error) {
	c, err := cid.Parse(s)
	if err != nil {
		return BlockID(cid.Undef), errors.Wrap(err, "parsing block id")
	}

	return BlockID(c), nil
}

// Meta carries the block header attributes the core validates.
// MerkleRoot must always be set, see MerkleRoot()
type Meta struct {
	Timestamp  int64  `msgpack:"t"`
	Nonce      uint64 `msgpack:"n"`
	MerkleRoot []byte `msgpack:"r"`
}

// Block is a single immutable ledger record. A non-genesis block is
// either a chain block (Prev set, no Parents) or a dag block (one or
// more Parents, no Prev); the store rejects anything else
type Block struct {
	Version uint32    `msgpack:"v"`
	ID      BlockID   `msgpack:"i"`
	Prev    *BlockID  `msgpack:"p,omitempty"`
	Parents []BlockID `msgpack:"a,omitempty"`
	Txs     []tx.Ref  `msgpack:"x"`
	Meta    Meta      `msgpack:"m"`
}

// NewBlock builds a block and derives its content id from the
// msgpack encoding of the header, the same way tx refs are derived
func NewBlock(txs []tx.Ref, prev *BlockID, parents []BlockID, meta Meta) (*Block, error) {
	b := &Block{
		Version: Version,
		Prev:    prev,
		Parents: parents,
		Txs:     txs,
		Meta:    meta,
	}

	id, err := b.contentID()
	if err != nil {
		return nil, err
	}

	b.ID = id

	return b, nil
}

func (b *Block) contentID() (BlockID, error) {
	hdr := *b
	hdr.ID = BlockID(cid.Undef)

	d, err := msgpack.Marshal(&hdr)
	if err != nil {
		return BlockID(cid.Undef), errors.Wrap(err, "marshaling block header")
	}

	h, err := multihash.Sum(d, multihash.SHA3_256, multihash.DefaultLengths[multihash.SHA3_256])
	if err != nil {
		return BlockID(cid.Undef), errors.Wrap(err, "hashing block header")
	}

	return BlockID(cid.NewCidV1(cid.Raw, h)), nil
}

// IsGenesis reports whether the block has no predecessor of either kind
func (b *Block) IsGenesis() bool {
	return b.Prev == nil && len(b.Parents) == 0
}

// IsChain reports whether the block is in linear successor mode
func (b *Block) IsChain() bool {
	return b.Prev != nil && len(b.Parents) == 0
}

// IsDag reports whether the block is in multi-parent mode
func (b *Block) IsDag() bool {
	return b.Prev == nil && len(b.Parents) > 0
}

func (b *Block) clone() *Block {
	c := *b

	if b.Prev != nil {
		p := *b.Prev
		c.Prev = &p
	}

	c.Parents = append([]BlockID(nil), b.Parents...)
	c.Txs = append([]tx.Ref(nil), b.Txs...)
	c.Meta.MerkleRoot = append([]byte(nil), b.Meta.MerkleRoot...)

	return &c
}
