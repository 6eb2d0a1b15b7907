package cmd

import (
	"fmt"
	"log"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"pixelmc/cli"
	"pixelmc/config"
)

var (
	inspectFieldFile string
	inspectQueryX    float64
	inspectQueryY    float64
	inspectQueryZ    float64
)

var inspectFieldCmd = &cobra.Command{
	Use:   "inspect-field",
	Short: "Report the electric field, doping and weighting potential at one point.",
	Long: `inspect-field loads a field file written by "pixelmc convert-mesh" (or
falls back to the analytic pad weighting potential) and prints the
interpolated field quantities at a single query point, for quickly
sanity-checking a conversion before running a full propagation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCfg := &config.AppConfig{
			Detector:    config.DefaultDetectorConfig(),
			Propagation: config.DefaultPropagationConfig(),
			MeshConvert: config.DefaultMeshConvertConfig(),
			Cli: config.CLIConfig{
				Mode:      config.ModeInspectField,
				Seed:      seed,
				FieldFile: inspectFieldFile,
				QueryX:    inspectQueryX,
				QueryY:    inspectQueryY,
				QueryZ:    inspectQueryZ,
			},
		}

		if configFile != "" {
			fmt.Printf("loading configuration overrides from %s\n", configFile)
			cliBeforeToml := appCfg.Cli
			if _, err := toml.DecodeFile(configFile, appCfg); err != nil {
				log.Printf("warning: failed to decode TOML file %q: %v; continuing with flag defaults", configFile, err)
				appCfg.Cli = cliBeforeToml
			}
		}

		if cmd.Flags().Changed("seed") {
			appCfg.Cli.Seed = seed
		}
		if cmd.Flags().Changed("fieldFile") {
			appCfg.Cli.FieldFile = inspectFieldFile
		}
		if cmd.Flags().Changed("queryX") {
			appCfg.Cli.QueryX = inspectQueryX
		}
		if cmd.Flags().Changed("queryY") {
			appCfg.Cli.QueryY = inspectQueryY
		}
		if cmd.Flags().Changed("queryZ") {
			appCfg.Cli.QueryZ = inspectQueryZ
		}

		if err := appCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for inspect-field mode: %w", err)
		}

		orchestrator := cli.NewOrchestrator(appCfg)
		if err := orchestrator.Run(); err != nil {
			return fmt.Errorf("inspect-field run failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectFieldCmd)

	inspectFieldCmd.Flags().StringVar(&inspectFieldFile, "fieldFile", "", "Path to an APF or INIT field file (required).")
	_ = inspectFieldCmd.MarkFlagRequired("fieldFile")
	inspectFieldCmd.Flags().Float64Var(&inspectQueryX, "queryX", 0, "X coordinate of the query point, in mm.")
	inspectFieldCmd.Flags().Float64Var(&inspectQueryY, "queryY", 0, "Y coordinate of the query point, in mm.")
	inspectFieldCmd.Flags().Float64Var(&inspectQueryZ, "queryZ", 0, "Z coordinate of the query point, in mm.")
}
