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
	convertGridFile   string
	convertDataFile   string
	convertOutputFile string
	convertObservable string
	convertNX         int
	convertNY         int
	convertNZ         int
	convertXMinMM     float64
	convertXMaxMM     float64
	convertYMinMM     float64
	convertYMaxMM     float64
	convertZMinMM     float64
	convertZMaxMM     float64
	convertWorkers    int
)

var convertMeshCmd = &cobra.Command{
	Use:   "convert-mesh",
	Short: "Resample a DF-ISE TCAD mesh onto a regular grid and write an APF field file.",
	Long: `convert-mesh parses a DF-ISE grid/field pair (.grd/.dat), resamples the
requested observable onto a regular grid by barycentric interpolation over
nearest-neighbour tetrahedral candidates, and writes the result as an APF
field file consumable by "pixelmc propagate" or "pixelmc inspect-field".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCfg := &config.AppConfig{
			Detector:    config.DefaultDetectorConfig(),
			Propagation: config.DefaultPropagationConfig(),
			MeshConvert: config.DefaultMeshConvertConfig(),
			Cli: config.CLIConfig{
				Mode: config.ModeConvertMesh,
				Seed: seed,
			},
		}
		appCfg.MeshConvert.GridFile = convertGridFile
		appCfg.MeshConvert.DataFile = convertDataFile
		appCfg.MeshConvert.OutputFile = convertOutputFile
		appCfg.MeshConvert.Observable = convertObservable
		appCfg.MeshConvert.NX = convertNX
		appCfg.MeshConvert.NY = convertNY
		appCfg.MeshConvert.NZ = convertNZ
		appCfg.MeshConvert.XMinMM, appCfg.MeshConvert.XMaxMM = convertXMinMM, convertXMaxMM
		appCfg.MeshConvert.YMinMM, appCfg.MeshConvert.YMaxMM = convertYMinMM, convertYMaxMM
		appCfg.MeshConvert.ZMinMM, appCfg.MeshConvert.ZMaxMM = convertZMinMM, convertZMaxMM
		appCfg.MeshConvert.WorkerCount = convertWorkers

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
		if cmd.Flags().Changed("gridFile") {
			appCfg.MeshConvert.GridFile = convertGridFile
		}
		if cmd.Flags().Changed("dataFile") {
			appCfg.MeshConvert.DataFile = convertDataFile
		}
		if cmd.Flags().Changed("outputFile") {
			appCfg.MeshConvert.OutputFile = convertOutputFile
		}
		if cmd.Flags().Changed("observable") {
			appCfg.MeshConvert.Observable = convertObservable
		}
		if cmd.Flags().Changed("nx") {
			appCfg.MeshConvert.NX = convertNX
		}
		if cmd.Flags().Changed("ny") {
			appCfg.MeshConvert.NY = convertNY
		}
		if cmd.Flags().Changed("nz") {
			appCfg.MeshConvert.NZ = convertNZ
		}
		if cmd.Flags().Changed("xMinMM") {
			appCfg.MeshConvert.XMinMM = convertXMinMM
		}
		if cmd.Flags().Changed("xMaxMM") {
			appCfg.MeshConvert.XMaxMM = convertXMaxMM
		}
		if cmd.Flags().Changed("yMinMM") {
			appCfg.MeshConvert.YMinMM = convertYMinMM
		}
		if cmd.Flags().Changed("yMaxMM") {
			appCfg.MeshConvert.YMaxMM = convertYMaxMM
		}
		if cmd.Flags().Changed("zMinMM") {
			appCfg.MeshConvert.ZMinMM = convertZMinMM
		}
		if cmd.Flags().Changed("zMaxMM") {
			appCfg.MeshConvert.ZMaxMM = convertZMaxMM
		}
		if cmd.Flags().Changed("workers") {
			appCfg.MeshConvert.WorkerCount = convertWorkers
		}

		if err := appCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for convert-mesh mode: %w", err)
		}

		orchestrator := cli.NewOrchestrator(appCfg)
		if err := orchestrator.Run(); err != nil {
			return fmt.Errorf("convert-mesh run failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertMeshCmd)

	convertMeshCmd.Flags().StringVar(&convertGridFile, "gridFile", "", "Path to the DF-ISE .grd mesh file (required).")
	_ = convertMeshCmd.MarkFlagRequired("gridFile")
	convertMeshCmd.Flags().StringVar(&convertDataFile, "dataFile", "", "Path to the DF-ISE .dat field data file (required).")
	_ = convertMeshCmd.MarkFlagRequired("dataFile")
	convertMeshCmd.Flags().StringVar(&convertOutputFile, "outputFile", "", "Path for the output APF field file (required).")
	_ = convertMeshCmd.MarkFlagRequired("outputFile")
	convertMeshCmd.Flags().StringVar(&convertObservable, "observable", "ElectricField", "Observable to resample: ElectricField, ElectrostaticPotential, DopingConcentration, DonorConcentration, AcceptorConcentration.")

	convertMeshCmd.Flags().IntVar(&convertNX, "nx", 1, "Output grid points along X.")
	convertMeshCmd.Flags().IntVar(&convertNY, "ny", 100, "Output grid points along Y.")
	convertMeshCmd.Flags().IntVar(&convertNZ, "nz", 100, "Output grid points along Z.")
	convertMeshCmd.Flags().Float64Var(&convertXMinMM, "xMinMM", 0, "Output grid lower X bound, in mm.")
	convertMeshCmd.Flags().Float64Var(&convertXMaxMM, "xMaxMM", 0, "Output grid upper X bound, in mm.")
	convertMeshCmd.Flags().Float64Var(&convertYMinMM, "yMinMM", 0, "Output grid lower Y bound, in mm.")
	convertMeshCmd.Flags().Float64Var(&convertYMaxMM, "yMaxMM", 0.055, "Output grid upper Y bound, in mm.")
	convertMeshCmd.Flags().Float64Var(&convertZMinMM, "zMinMM", 0, "Output grid lower Z bound, in mm.")
	convertMeshCmd.Flags().Float64Var(&convertZMaxMM, "zMaxMM", 0.3, "Output grid upper Z bound, in mm.")
	convertMeshCmd.Flags().IntVar(&convertWorkers, "workers", 0, "Worker goroutines for the X-slice parallel conversion (0 uses GOMAXPROCS).")
}
