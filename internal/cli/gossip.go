package cli

import (
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/spf13/cobra"

	"github.com/tcfw/blockmesh/pkg/ledger"
)

var (
	recordKnowledgeCmd = &cobra.Command{
		Use:   "record-knowledge",
		Short: "record a node's learn time for a block",
		RunE:  runRecordKnowledge,
	}

	sendGossipCmd = &cobra.Command{
		Use:   "send-gossip",
		Short: "disseminate a block between linked peers",
		RunE:  runSendGossip,
	}

	syncFromKnowledgeCmd = &cobra.Command{
		Use:   "sync-from-knowledge",
		Short: "materialize a node's sync set from its knowledge",
		RunE:  runSyncFromKnowledge,
	}
)

func init() {
	recordKnowledgeCmd.Flags().String("node", "", "node id")
	recordKnowledgeCmd.Flags().String("block", "", "block id")
	recordKnowledgeCmd.Flags().Int64("at", 0, "learn time")

	sendGossipCmd.Flags().String("from", "", "sender node id")
	sendGossipCmd.Flags().String("to", "", "receiver node id")
	sendGossipCmd.Flags().String("block", "", "block id")
	sendGossipCmd.Flags().Uint64("size", 0, "gossip size in bytes")
	sendGossipCmd.Flags().Int64("at", 0, "gossip time")

	syncFromKnowledgeCmd.Flags().String("node", "", "node id")
}

func runRecordKnowledge(cmd *cobra.Command, args []string) error {
	node, _ := cmd.Flags().GetString("node")
	blkRaw, _ := cmd.Flags().GetString("block")
	at, _ := cmd.Flags().GetInt64("at")

	blk, err := ledger.ParseBlockID(blkRaw)
	if err != nil {
		return err
	}

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.RecordKnowledge(peer.ID(node), blk, at)
}

func runSendGossip(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	blkRaw, _ := cmd.Flags().GetString("block")
	size, _ := cmd.Flags().GetUint64("size")
	at, _ := cmd.Flags().GetInt64("at")

	blk, err := ledger.ParseBlockID(blkRaw)
	if err != nil {
		return err
	}

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.SendGossip(peer.ID(from), peer.ID(to), blk, size, at)
}

func runSyncFromKnowledge(cmd *cobra.Command, args []string) error {
	node, _ := cmd.Flags().GetString("node")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.SyncFromKnowledge(peer.ID(node))
}
