package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags shared by every subcommand.
	configFile string
	seed       int64
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pixelmc",
	Short: "pixelmc: Monte Carlo charge-carrier transport for silicon pixel detectors",
	Long: `pixelmc propagates deposited charge carriers through a silicon
pixel sensor's electric field, converts TCAD mesh field data onto the
regular grids the transport engine consumes, and inspects field files
directly. Use "pixelmc [command] --help" for details on a specific
command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(), exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "configFile", "", "Path to a TOML configuration file overriding the defaults below.")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Seed for the random number generator (0 uses the current time).")
}
