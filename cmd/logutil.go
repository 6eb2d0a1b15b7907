package cmd

import (
	"github.com/spf13/cobra"
)

// logutilCmd represents the base logutil command.
var logutilCmd = &cobra.Command{
	Use:   "logutil",
	Short: "Utilities for working with diagnostics SQLite logs.",
	Long: `logutil provides subcommands for processing and exporting data from
the diagnostics SQLite databases written by "pixelmc propagate --dbPath".`,
}

func init() {
	rootCmd.AddCommand(logutilCmd)
}
