package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/blockmesh/internal/config"
	"github.com/tcfw/blockmesh/internal/harness"
	"github.com/tcfw/blockmesh/pkg/peering"
)

var (
	rootCmd = &cobra.Command{
		Use:           "blockmesh",
		Short:         "block ledger, gossip and consensus core harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() error {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase verbosity")
	rootCmd.PersistentFlags().StringP("state-dir", "s", "", "world state directory")
	viper.BindPFlag(config.Cfg_verbose, rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.Cfg_stateDir, rootCmd.PersistentFlags().Lookup("state-dir"))

	regCommands()

	return rootCmd.Execute()
}

// openWorld loads harness state from the configured directory; the
// caller owns Close
func openWorld() (*harness.World, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	return harness.Open(cfg.StateDir, peering.WithStorageHighWater(cfg.StorageHighWater))
}
