package cli

import (
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/spf13/cobra"
)

var (
	proposeCmd = &cobra.Command{
		Use:   "propose",
		Short: "record a node's proposal",
		RunE:  runPropose,
	}

	decideCmd = &cobra.Command{
		Use:   "decide",
		Short: "record a node's decision",
		RunE:  runDecide,
	}
)

func init() {
	proposeCmd.Flags().String("node", "", "node id")
	proposeCmd.Flags().String("value", "", "proposed value")
	proposeCmd.Flags().Int64("at", 0, "proposal time")

	decideCmd.Flags().String("node", "", "node id")
	decideCmd.Flags().String("value", "", "decided value")
	decideCmd.Flags().Int64("at", 0, "decision time")
}

func runPropose(cmd *cobra.Command, args []string) error {
	node, _ := cmd.Flags().GetString("node")
	value, _ := cmd.Flags().GetString("value")
	at, _ := cmd.Flags().GetInt64("at")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Propose(peer.ID(node), value, at)
}

func runDecide(cmd *cobra.Command, args []string) error {
	node, _ := cmd.Flags().GetString("node")
	value, _ := cmd.Flags().GetString("value")
	at, _ := cmd.Flags().GetInt64("at")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Decide(peer.ID(node), value, at)
}
