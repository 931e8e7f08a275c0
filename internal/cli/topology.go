package cli

import (
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/spf13/cobra"

	"github.com/tcfw/blockmesh/pkg/peering"
)

var (
	registerNodeCmd = &cobra.Command{
		Use:   "register-node",
		Short: "register a peer identity",
		RunE:  runRegisterNode,
	}

	markFaultyCmd = &cobra.Command{
		Use:   "mark-faulty",
		Short: "remove a node from the non-faulty set",
		RunE:  runMarkFaulty,
	}

	addPeerLinkCmd = &cobra.Command{
		Use:   "add-peer-link",
		Short: "link two nodes symmetrically",
		RunE:  runAddPeerLink,
	}

	removePeerLinkCmd = &cobra.Command{
		Use:   "remove-peer-link",
		Short: "unlink two nodes",
		RunE:  runRemovePeerLink,
	}
)

func init() {
	registerNodeCmd.Flags().String("id", "", "node id")
	registerNodeCmd.Flags().String("kind", "full", "full or light")
	registerNodeCmd.Flags().StringSlice("roles", nil, "validator, miner, archive, observer")
	registerNodeCmd.Flags().Int64("storage", 0, "storage capacity in bytes")
	registerNodeCmd.Flags().Int64("bandwidth", 0, "bandwidth capacity in bytes/s")

	markFaultyCmd.Flags().String("id", "", "node id")

	addPeerLinkCmd.Flags().String("a", "", "first node id")
	addPeerLinkCmd.Flags().String("b", "", "second node id")

	removePeerLinkCmd.Flags().String("a", "", "first node id")
	removePeerLinkCmd.Flags().String("b", "", "second node id")
}

func runRegisterNode(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	kindRaw, _ := cmd.Flags().GetString("kind")
	rolesRaw, _ := cmd.Flags().GetStringSlice("roles")
	storage, _ := cmd.Flags().GetInt64("storage")
	bandwidth, _ := cmd.Flags().GetInt64("bandwidth")

	kind, err := peering.ParseKind(kindRaw)
	if err != nil {
		return err
	}

	roles := make([]peering.Role, 0, len(rolesRaw))
	for _, r := range rolesRaw {
		role, err := peering.ParseRole(r)
		if err != nil {
			return err
		}
		roles = append(roles, role)
	}

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.RegisterNode(peer.ID(id), kind, roles, storage, bandwidth)
}

func runMarkFaulty(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.MarkFaulty(peer.ID(id))
}

func runAddPeerLink(cmd *cobra.Command, args []string) error {
	a, _ := cmd.Flags().GetString("a")
	b, _ := cmd.Flags().GetString("b")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.AddPeerLink(peer.ID(a), peer.ID(b))
}

func runRemovePeerLink(cmd *cobra.Command, args []string) error {
	a, _ := cmd.Flags().GetString("a")
	b, _ := cmd.Flags().GetString("b")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.RemovePeerLink(peer.ID(a), peer.ID(b))
}
