package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/blockmesh/pkg/tx"
)

func TestMerkleRootOrderIndependent(t *testing.T) {
	t1 := tx.MustRef([]byte("t1"))
	t2 := tx.MustRef([]byte("t2"))
	t3 := tx.MustRef([]byte("t3"))

	a, err := MerkleRoot([]tx.Ref{t1, t2, t3})
	require.NoError(t, err)

	b, err := MerkleRoot([]tx.Ref{t3, t1, t2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestMerkleRootDistinguishesSets(t *testing.T) {
	t1 := tx.MustRef([]byte("t1"))
	t2 := tx.MustRef([]byte("t2"))

	a, err := MerkleRoot([]tx.Ref{t1})
	require.NoError(t, err)

	b, err := MerkleRoot([]tx.Ref{t1, t2})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMerkleRootEmptySet(t *testing.T) {
	root, err := MerkleRoot(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, root)
}
