package tx

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// Ref is an opaque content-addressed reference to an externally
// constructed and pre-validated transaction. The core never inspects
// payloads, it only tracks inclusion and uniqueness.
type Ref cid.Cid

// NewRef derives a Ref from an opaque payload
func NewRef(data []byte) (Ref, error) {
	h, err := multihash.Sum(data, multihash.SHA3_256, multihash.DefaultLengths[multihash.SHA3_256])
	if err != nil {
		return Ref(cid.Undef), errors.Wrap(err, "hashing tx payload")
	}

	return Ref(cid.NewCidV1(cid.Raw, h)), nil
}

// MustRef is NewRef for static payloads, mostly test fixtures
func MustRef(data []byte) Ref {
	r, err := NewRef(data)
	if err != nil {
		panic(err)
	}

	return r
}

func ParseRef(s string) (Ref, error) {
	c, err := cid.Parse(s)
	if err != nil {
		return Ref(cid.Undef), errors.Wrap(err, "parsing tx ref")
	}

	return Ref(c), nil
}

func (r Ref) String() string {
	return cid.Cid(r).String()
}

func (r Ref) Bytes() []byte {
	return cid.Cid(r).Bytes()
}

func (r Ref) Defined() bool {
	return cid.Cid(r) != cid.Undef
}

func (r Ref) MarshalBinary() ([]byte, error) {
	return cid.Cid(r).MarshalBinary()
}

func (r *Ref) UnmarshalBinary(data []byte) error {
	c := cid.Cid{}
	if err := c.UnmarshalBinary(data); err != nil {
		return err
	}

	*r = Ref(c)

	return nil
}
