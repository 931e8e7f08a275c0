package cli

import (
	"fmt"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/spf13/cobra"

	"github.com/tcfw/blockmesh/pkg/ledger"
)

var (
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "inspect world state",
		RunE:  runShow,
	}
)

func init() {
	showCmd.Flags().String("block", "", "print a block's height and txs")
	showCmd.Flags().String("node", "", "print a node's traffic metrics")
}

func runShow(cmd *cobra.Command, args []string) error {
	blkRaw, _ := cmd.Flags().GetString("block")
	node, _ := cmd.Flags().GetString("node")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	out := cmd.OutOrStdout()

	if blkRaw != "" {
		id, err := ledger.ParseBlockID(blkRaw)
		if err != nil {
			return err
		}

		b, err := w.Led.Block(id)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "block %s txs=%d\n", b.ID, len(b.Txs))

		if h, err := w.Led.Height(id); err == nil {
			fmt.Fprintf(out, "height %d\n", h)
		}

		return nil
	}

	if node != "" {
		m := w.Net.Metrics(peer.ID(node))
		fmt.Fprintf(out, "node %s sent=%d recv=%d\n", node, m.Sent, m.Recv)

		return nil
	}

	fmt.Fprintf(out, "blocks=%d nodes=%d events=%d\n", w.Led.Len(), len(w.Reg.Nodes()), len(w.Net.Events()))

	return nil
}
