package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tcfw/blockmesh/internal/config"
	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/tx"
)

var (
	seedGenesisCmd = &cobra.Command{
		Use:   "seed-genesis",
		Short: "create the genesis block from a YAML seed file",
		RunE:  runSeedGenesis,
	}

	appendBlockCmd = &cobra.Command{
		Use:   "append-block",
		Short: "append a chain or dag block",
		RunE:  runAppendBlock,
	}
)

func init() {
	seedGenesisCmd.Flags().StringP("genesis", "g", "genesis.yaml", "genesis seed file")

	appendBlockCmd.Flags().String("prev", "", "predecessor block id (chain mode)")
	appendBlockCmd.Flags().StringSlice("parents", nil, "parent block ids (dag mode)")
	appendBlockCmd.Flags().StringSlice("tx", nil, "opaque tx payloads to include")
	appendBlockCmd.Flags().Int64("at", 0, "block timestamp")
	appendBlockCmd.Flags().Uint64("nonce", 0, "block nonce")
}

func runSeedGenesis(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("genesis")

	seed, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}

	refs, err := seed.TxRefs()
	if err != nil {
		return err
	}

	root, err := ledger.MerkleRoot(refs)
	if err != nil {
		return err
	}

	b, err := ledger.NewBlock(refs, nil, nil, ledger.Meta{
		Timestamp:  seed.Timestamp,
		Nonce:      seed.Nonce,
		MerkleRoot: root,
	})
	if err != nil {
		return err
	}

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.AppendBlock(b); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), b.ID)

	return nil
}

func runAppendBlock(cmd *cobra.Command, args []string) error {
	prevRaw, _ := cmd.Flags().GetString("prev")
	parentsRaw, _ := cmd.Flags().GetStringSlice("parents")
	payloads, _ := cmd.Flags().GetStringSlice("tx")
	at, _ := cmd.Flags().GetInt64("at")
	nonce, _ := cmd.Flags().GetUint64("nonce")

	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	refs := make([]tx.Ref, 0, len(payloads))
	for _, p := range payloads {
		r, err := tx.NewRef([]byte(p))
		if err != nil {
			return err
		}
		refs = append(refs, r)
	}

	var prev *ledger.BlockID
	if prevRaw != "" {
		id, err := ledger.ParseBlockID(prevRaw)
		if err != nil {
			return err
		}
		prev = &id

		// chain blocks carry their ancestry's txs forward
		pb, err := w.Led.Block(id)
		if err != nil {
			return errors.Wrap(err, "loading predecessor")
		}

		held := make(map[tx.Ref]struct{}, len(refs))
		for _, r := range refs {
			held[r] = struct{}{}
		}
		for _, r := range pb.Txs {
			if _, ok := held[r]; !ok {
				refs = append(refs, r)
			}
		}
	}

	var parents []ledger.BlockID
	for _, p := range parentsRaw {
		id, err := ledger.ParseBlockID(p)
		if err != nil {
			return err
		}
		parents = append(parents, id)
	}

	root, err := ledger.MerkleRoot(refs)
	if err != nil {
		return err
	}

	b, err := ledger.NewBlock(refs, prev, parents, ledger.Meta{
		Timestamp:  at,
		Nonce:      nonce,
		MerkleRoot: root,
	})
	if err != nil {
		return err
	}

	if err := w.AppendBlock(b); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), b.ID)

	return nil
}
