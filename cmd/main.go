package main

import (
	"os"

	"github.com/tcfw/blockmesh/internal/cli"
	"github.com/tcfw/blockmesh/internal/utils/logging"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.WithError(err).Error("command failed")
		os.Exit(cli.ExitCode(err))
	}
}
