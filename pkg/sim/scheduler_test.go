package sim

import (
	"testing"
	"time"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/blockmesh/pkg/consensus"
	"github.com/tcfw/blockmesh/pkg/gossip"
	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/peering"
	"github.com/tcfw/blockmesh/pkg/tx"
)

func testWorld(t *testing.T, ids ...string) (*peering.Registry, *gossip.Network, *consensus.Engine) {
	t.Helper()

	reg := peering.NewRegistry(peering.WithStorageHighWater(10))

	for _, id := range ids {
		_, err := reg.RegisterNode(peer.ID(id), peering.KindLight, []peering.Role{peering.RoleValidator}, 5, 5)
		require.NoError(t, err)
	}

	net := gossip.NewNetwork(reg)

	return reg, net, consensus.NewEngine(reg, net, nil)
}

func testBlockID(t *testing.T, seed string) ledger.BlockID {
	t.Helper()

	root, err := ledger.MerkleRoot(nil)
	require.NoError(t, err)

	b, err := ledger.NewBlock([]tx.Ref{tx.MustRef([]byte(seed))}, nil, nil, ledger.Meta{MerkleRoot: root})
	require.NoError(t, err)

	return b.ID
}

func fastBackoff() Option {
	return WithBackoff(time.Microsecond, 10*time.Microsecond)
}

func TestDeliverRetriesDrops(t *testing.T) {
	reg, net, eng := testWorld(t, "a", "b")

	require.NoError(t, net.AddPeerLink(peer.ID("a"), peer.ID("b")))

	g := testBlockID(t, "g")
	require.NoError(t, net.RecordKnowledge(peer.ID("a"), g, 0))

	// first two attempts dropped, third delivers
	drops := 0
	s := NewScheduler(reg, net, eng, fastBackoff(), WithMaxAttempts(5), WithLoss(func(d Delivery) bool {
		if drops < 2 {
			drops++
			return true
		}
		return false
	}))
	defer s.Close()

	require.NoError(t, s.Deliver(Delivery{
		Sender:   peer.ID("a"),
		Receiver: peer.ID("b"),
		Block:    g,
		Size:     32,
		At:       5,
	}))

	assert.Equal(t, 2, drops)

	at, ok := net.Knows(peer.ID("b"), g)
	require.True(t, ok)
	assert.Equal(t, int64(5), at)
}

func TestDeliverExhaustsBudget(t *testing.T) {
	reg, net, eng := testWorld(t, "a", "b")

	require.NoError(t, net.AddPeerLink(peer.ID("a"), peer.ID("b")))

	g := testBlockID(t, "g")
	require.NoError(t, net.RecordKnowledge(peer.ID("a"), g, 0))

	s := NewScheduler(reg, net, eng, fastBackoff(), WithMaxAttempts(3), WithLoss(func(Delivery) bool {
		return true
	}))
	defer s.Close()

	err := s.Deliver(Delivery{Sender: peer.ID("a"), Receiver: peer.ID("b"), Block: g, Size: 32, At: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, gossip.ErrDropped)
	assert.True(t, gossip.IsNetworkError(err))

	// endpoints untouched
	_, ok := net.Knows(peer.ID("b"), g)
	assert.False(t, ok)
	assert.Empty(t, net.Events())
}

func TestDriveDecisionsTerminates(t *testing.T) {
	reg, net, eng := testWorld(t, "n1", "n2", "n3")

	g := testBlockID(t, "g")
	for _, id := range []peer.ID{"n1", "n2", "n3"} {
		require.NoError(t, net.RecordKnowledge(id, g, 0))
	}

	s := NewScheduler(reg, net, eng, fastBackoff(), WithMaxAttempts(10))
	defer s.Close()

	require.NoError(t, s.DriveDecisions("v", 1))

	assert.Nil(t, eng.AuditLiveness())
	assert.Nil(t, eng.AuditSafety())

	for _, id := range []peer.ID{"n1", "n2", "n3"} {
		assert.Equal(t, consensus.Decided, eng.Step(id))
	}
}

func TestDriveDecisionsReportsStragglers(t *testing.T) {
	reg, net, eng := testWorld(t, "n1", "n2")

	g := testBlockID(t, "g")

	// n2 never learns a block so its decide precondition never holds
	require.NoError(t, net.RecordKnowledge(peer.ID("n1"), g, 0))

	s := NewScheduler(reg, net, eng, fastBackoff(), WithMaxAttempts(3))
	defer s.Close()

	err := s.DriveDecisions("v", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)

	v := eng.AuditLiveness()
	require.NotNil(t, v)
	assert.Equal(t, []peer.ID{"n2"}, v.Undecided)
}

func TestActorSerializesNodeMutations(t *testing.T) {
	reg, net, eng := testWorld(t, "a")

	s := NewScheduler(reg, net, eng, fastBackoff())
	defer s.Close()

	counter := 0
	done := make(chan struct{})

	for i := 0; i < 50; i++ {
		go func() {
			_ = s.Do(peer.ID("a"), func() error {
				counter++
				return nil
			})
			done <- struct{}{}
		}()
	}

	for i := 0; i < 50; i++ {
		<-done
	}

	assert.Equal(t, 50, counter)
}
