package gossip

import (
	"testing"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/peering"
	"github.com/tcfw/blockmesh/pkg/tx"
)

func testNet(t *testing.T, ids ...string) (*peering.Registry, *Network) {
	t.Helper()

	reg := peering.NewRegistry(peering.WithStorageHighWater(10))

	for _, id := range ids {
		_, err := reg.RegisterNode(peer.ID(id), peering.KindLight, []peering.Role{peering.RoleObserver}, 5, 5)
		require.NoError(t, err)
	}

	return reg, NewNetwork(reg)
}

func testBlockID(t *testing.T, seed string) ledger.BlockID {
	t.Helper()

	root, err := ledger.MerkleRoot(nil)
	require.NoError(t, err)

	b, err := ledger.NewBlock([]tx.Ref{tx.MustRef([]byte(seed))}, nil, nil, ledger.Meta{MerkleRoot: root})
	require.NoError(t, err)

	return b.ID
}

func TestPeerLinksSymmetric(t *testing.T) {
	reg, n := testNet(t, "a", "b")

	assert.ErrorIs(t, n.AddPeerLink(peer.ID("a"), peer.ID("a")), ErrSelfLink)
	assert.True(t, IsNetworkError(n.AddPeerLink(peer.ID("a"), peer.ID("a"))))

	require.NoError(t, n.AddPeerLink(peer.ID("a"), peer.ID("b")))

	na, err := reg.Node(peer.ID("a"))
	require.NoError(t, err)
	nb, err := reg.Node(peer.ID("b"))
	require.NoError(t, err)

	assert.True(t, na.IsPeer(peer.ID("b")))
	assert.True(t, nb.IsPeer(peer.ID("a")))

	require.NoError(t, n.RemovePeerLink(peer.ID("b"), peer.ID("a")))
	assert.False(t, na.IsPeer(peer.ID("b")))
	assert.False(t, nb.IsPeer(peer.ID("a")))

	assert.ErrorIs(t, n.RemovePeerLink(peer.ID("a"), peer.ID("b")), ErrNotLinked)
}

func TestKnowledgeWriteOnce(t *testing.T) {
	_, n := testNet(t, "a")

	blk := testBlockID(t, "g")

	require.NoError(t, n.RecordKnowledge(peer.ID("a"), blk, 3))

	// idempotent at the same time
	require.NoError(t, n.RecordKnowledge(peer.ID("a"), blk, 3))

	err := n.RecordKnowledge(peer.ID("a"), blk, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKnowledgeConflict)

	at, ok := n.Knows(peer.ID("a"), blk)
	require.True(t, ok)
	assert.Equal(t, int64(3), at)

	assert.ErrorIs(t, n.RecordKnowledge(peer.ID("a"), blk, -1), ErrNegativeTime)
}

func TestSendGossip(t *testing.T) {
	_, n := testNet(t, "a", "b", "c")

	require.NoError(t, n.AddPeerLink(peer.ID("a"), peer.ID("b")))

	g := testBlockID(t, "g")

	// sender must know the block first
	err := n.SendGossip(peer.ID("a"), peer.ID("b"), g, 64, 5)
	assert.ErrorIs(t, err, ErrUnknownBlock)

	require.NoError(t, n.RecordKnowledge(peer.ID("a"), g, 0))

	assert.ErrorIs(t, n.SendGossip(peer.ID("a"), peer.ID("a"), g, 64, 5), ErrSelfGossip)
	assert.ErrorIs(t, n.SendGossip(peer.ID("a"), peer.ID("c"), g, 64, 5), ErrNotPeer)

	require.NoError(t, n.SendGossip(peer.ID("a"), peer.ID("b"), g, 64, 5))

	at, ok := n.Knows(peer.ID("b"), g)
	require.True(t, ok)
	assert.Equal(t, int64(5), at)

	m := n.Metrics(peer.ID("a"))
	assert.Equal(t, uint64(64), m.Sent)
	assert.Equal(t, uint64(0), m.Recv)

	m = n.Metrics(peer.ID("b"))
	assert.Equal(t, uint64(64), m.Recv)

	require.Len(t, n.Events(), 1)
}

func TestSendGossipStaleKnowledge(t *testing.T) {
	_, n := testNet(t, "a", "b")

	require.NoError(t, n.AddPeerLink(peer.ID("a"), peer.ID("b")))

	g := testBlockID(t, "g")
	require.NoError(t, n.RecordKnowledge(peer.ID("a"), g, 10))

	err := n.SendGossip(peer.ID("a"), peer.ID("b"), g, 64, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleKnowledge)

	// failed gossip leaves both endpoints unchanged
	_, ok := n.Knows(peer.ID("b"), g)
	assert.False(t, ok)
	assert.Equal(t, Traffic{}, n.Metrics(peer.ID("a")))
	assert.Empty(t, n.Events())
}

func TestTrafficDerivedFromEvents(t *testing.T) {
	_, n := testNet(t, "a", "b", "c")

	require.NoError(t, n.AddPeerLink(peer.ID("a"), peer.ID("b")))
	require.NoError(t, n.AddPeerLink(peer.ID("b"), peer.ID("c")))

	g := testBlockID(t, "g")
	require.NoError(t, n.RecordKnowledge(peer.ID("a"), g, 0))

	require.NoError(t, n.SendGossip(peer.ID("a"), peer.ID("b"), g, 100, 1))
	require.NoError(t, n.SendGossip(peer.ID("b"), peer.ID("c"), g, 40, 2))

	sent := map[peer.ID]uint64{}
	recv := map[peer.ID]uint64{}
	for _, e := range n.Events() {
		sent[e.Sender] += e.Size
		recv[e.Receiver] += e.Size
	}

	for _, id := range []peer.ID{"a", "b", "c"} {
		m := n.Metrics(id)
		assert.Equal(t, sent[id], m.Sent, "sent for %s", id)
		assert.Equal(t, recv[id], m.Recv, "recv for %s", id)
	}
}
