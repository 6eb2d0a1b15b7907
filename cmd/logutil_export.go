package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pixelmc/storage"
)

var (
	logutilExportDbPath string
	logutilExportTable  string
	logutilExportOutput string
)

// logutilExportCmd represents the logutil export command.
var logutilExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a table from a diagnostics SQLite log as CSV.",
	Long: `export reads a diagnostics SQLite database written by "pixelmc propagate
--dbPath ..." and writes one of its tables (Events, PixelPulses, Anomalies)
as CSV, to a file or to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("exporting table %q from %s\n", logutilExportTable, logutilExportDbPath)
		if logutilExportOutput != "" {
			fmt.Printf("  output: %s\n", logutilExportOutput)
		} else {
			fmt.Println("  output: stdout")
		}

		if err := storage.ExportLogData(logutilExportDbPath, logutilExportTable, logutilExportOutput); err != nil {
			return fmt.Errorf("log export failed: %w", err)
		}
		fmt.Println("export complete")
		return nil
	},
}

func init() {
	logutilCmd.AddCommand(logutilExportCmd)

	logutilExportCmd.Flags().StringVarP(&logutilExportDbPath, "dbPath", "d", "", "Path to the diagnostics SQLite database (required).")
	_ = logutilExportCmd.MarkFlagRequired("dbPath")

	logutilExportCmd.Flags().StringVarP(&logutilExportTable, "table", "t", "", "Table to export: Events, PixelPulses or Anomalies (required).")
	_ = logutilExportCmd.MarkFlagRequired("table")

	logutilExportCmd.Flags().StringVarP(&logutilExportOutput, "output", "o", "", "Output file (stdout if not specified).")
}
