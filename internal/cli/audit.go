package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	safetyAuditCmd = &cobra.Command{
		Use:   "run-safety-audit",
		Short: "check agreement over all decision records",
		RunE:  runSafetyAudit,
	}

	livenessAuditCmd = &cobra.Command{
		Use:   "run-liveness-audit",
		Short: "check every non-faulty node has decided",
		RunE:  runLivenessAudit,
	}

	syncAuditCmd = &cobra.Command{
		Use:   "run-sync-audit",
		Short: "check full/light sync sets against the block universe",
		RunE:  runSyncAudit,
	}
)

func runSafetyAudit(cmd *cobra.Command, args []string) error {
	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	if v := w.Eng.AuditSafety(); v != nil {
		return v
	}

	fmt.Fprintln(cmd.OutOrStdout(), "agreement holds")

	return nil
}

func runLivenessAudit(cmd *cobra.Command, args []string) error {
	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	if v := w.Eng.AuditLiveness(); v != nil {
		for _, id := range v.Undecided {
			fmt.Fprintf(cmd.ErrOrStderr(), "undecided: %s\n", id)
		}
		return v
	}

	fmt.Fprintln(cmd.OutOrStdout(), "termination holds")

	return nil
}

func runSyncAudit(cmd *cobra.Command, args []string) error {
	w, err := openWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Reg.ValidateSyncSets(w.Led.BlockIDs()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "sync sets consistent")

	return nil
}
