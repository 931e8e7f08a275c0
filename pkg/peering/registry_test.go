package peering

import (
	"testing"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/tx"
)

func testBlockID(t *testing.T, seed string) ledger.BlockID {
	t.Helper()

	root, err := ledger.MerkleRoot(nil)
	require.NoError(t, err)

	b, err := ledger.NewBlock([]tx.Ref{tx.MustRef([]byte(seed))}, nil, nil, ledger.Meta{MerkleRoot: root})
	require.NoError(t, err)

	return b.ID
}

func TestRegisterNodeRoleRules(t *testing.T) {
	r := NewRegistry(WithStorageHighWater(10))

	_, err := r.RegisterNode(peer.ID("a"), KindFull, nil, 100, 10)
	assert.ErrorIs(t, err, ErrNoRoles)
	assert.True(t, IsRoleError(err))

	_, err = r.RegisterNode(peer.ID("a"), KindLight, []Role{RoleArchive}, 100, 10)
	assert.ErrorIs(t, err, ErrArchiveRequiresFull)

	n, err := r.RegisterNode(peer.ID("a"), KindFull, []Role{RoleArchive, RoleValidator}, 100, 10)
	require.NoError(t, err)
	assert.True(t, n.HasRole(RoleArchive))

	_, err = r.RegisterNode(peer.ID("a"), KindFull, []Role{RoleMiner}, 100, 10)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestRegisterNodeCapacityRules(t *testing.T) {
	r := NewRegistry(WithStorageHighWater(1000))

	_, err := r.RegisterNode(peer.ID("a"), KindLight, []Role{RoleObserver}, -1, 10)
	assert.ErrorIs(t, err, ErrNegativeCapacity)
	assert.True(t, IsCapacityError(err))

	_, err = r.RegisterNode(peer.ID("a"), KindFull, []Role{RoleMiner}, 1000, 10)
	assert.ErrorIs(t, err, ErrStorageBelowMark)

	_, err = r.RegisterNode(peer.ID("a"), KindFull, []Role{RoleMiner}, 1001, 10)
	require.NoError(t, err)

	// light nodes are exempt from the high-water mark
	_, err = r.RegisterNode(peer.ID("b"), KindLight, []Role{RoleObserver}, 5, 10)
	require.NoError(t, err)
}

func TestNonFaultySet(t *testing.T) {
	r := NewRegistry(WithStorageHighWater(10))

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.RegisterNode(peer.ID(id), KindLight, []Role{RoleValidator}, 5, 5)
		require.NoError(t, err)
	}

	require.NoError(t, r.MarkFaulty(peer.ID("b")))
	assert.ErrorIs(t, r.MarkFaulty(peer.ID("z")), ErrUnknownNode)

	assert.Equal(t, []peer.ID{"a", "c"}, r.NonFaulty())
	assert.Len(t, r.Nodes(), 3)

	faulty, err := r.IsFaulty(peer.ID("b"))
	require.NoError(t, err)
	assert.True(t, faulty)

	faulty, err = r.IsFaulty(peer.ID("a"))
	require.NoError(t, err)
	assert.False(t, faulty)

	_, err = r.IsFaulty(peer.ID("z"))
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestValidateSyncSets(t *testing.T) {
	r := NewRegistry(WithStorageHighWater(10))

	_, err := r.RegisterNode(peer.ID("full"), KindFull, []Role{RoleArchive}, 100, 10)
	require.NoError(t, err)

	_, err = r.RegisterNode(peer.ID("light"), KindLight, []Role{RoleObserver}, 5, 5)
	require.NoError(t, err)

	b1 := testBlockID(t, "b1")
	b2 := testBlockID(t, "b2")
	universe := []ledger.BlockID{b1, b2}

	// full node missing a block
	require.NoError(t, r.SyncFromKnowledge(peer.ID("full"), []ledger.BlockID{b1}))
	err = r.ValidateSyncSets(universe)
	assert.ErrorIs(t, err, ErrSyncSetIncomplete)

	require.NoError(t, r.SyncFromKnowledge(peer.ID("full"), universe))
	require.NoError(t, r.SyncFromKnowledge(peer.ID("light"), []ledger.BlockID{b1}))
	assert.NoError(t, r.ValidateSyncSets(universe))

	// light node catching the whole universe breaks strictness
	require.NoError(t, r.SyncFromKnowledge(peer.ID("light"), []ledger.BlockID{b2}))
	err = r.ValidateSyncSets(universe)
	assert.ErrorIs(t, err, ErrSyncSetNotSubset)
}

func TestValidateSyncSetsEmptyUniverse(t *testing.T) {
	r := NewRegistry(WithStorageHighWater(10))

	_, err := r.RegisterNode(peer.ID("full"), KindFull, []Role{RoleArchive}, 100, 10)
	require.NoError(t, err)

	_, err = r.RegisterNode(peer.ID("light"), KindLight, []Role{RoleObserver}, 5, 5)
	require.NoError(t, err)

	// nothing appended, nothing to sync; all kinds pass
	assert.NoError(t, r.ValidateSyncSets(nil))

	// any sync entry against an empty universe is an unknown block
	require.NoError(t, r.SyncFromKnowledge(peer.ID("light"), []ledger.BlockID{testBlockID(t, "b1")}))
	assert.ErrorIs(t, r.ValidateSyncSets(nil), ErrSyncSetUnknownSync)
}
