package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"pixelmc/cli"
	"pixelmc/config"
)

var (
	propagateFieldFile    string
	propagateDepositsFile string
	propagateNumDeposits  int
	propagateDbPath       string

	propagateSensorThicknessMM float64
	propagatePixelPitchXMM     float64
	propagatePixelPitchYMM     float64
	propagateTemperatureK      float64
	propagateMobilityModel     string
	propagateImpactModel       string
	propagateIntegrator        string
	propagateWorkerCount       int
	propagateEnableDiffusion   bool
	propagateEnableTrapping    bool

	propagateLogLevel string

	propagateCPUProfileFile string
	propagateMemProfileFile string
)

var propagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Propagate deposited charge through a sensor's field and accumulate induced pulses.",
	Long: `propagate loads (or falls back to an analytic pad model for) a sensor's
electric field and weighting potential, subdivides deposited charge into
simulated carrier groups, integrates their drift/diffusion trajectories to
the readout or backplane, and records induced charge per pixel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if propagateCPUProfileFile != "" {
			f, err := os.Create(propagateCPUProfileFile)
			if err != nil {
				log.Fatalf("could not create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Fatalf("could not start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
			fmt.Printf("CPU profiling enabled, writing to %s\n", propagateCPUProfileFile)
		}

		appCfg := &config.AppConfig{
			Detector:    config.DefaultDetectorConfig(),
			Propagation: config.DefaultPropagationConfig(),
			MeshConvert: config.DefaultMeshConvertConfig(),
			Cli: config.CLIConfig{
				Mode:         config.ModePropagate,
				Seed:         seed,
				FieldFile:    propagateFieldFile,
				DepositsFile: propagateDepositsFile,
				NumDeposits:  propagateNumDeposits,
				DbPath:       propagateDbPath,
				LogLevel:     propagateLogLevel,
			},
		}
		appCfg.Detector.SensorThicknessMM = propagateSensorThicknessMM
		appCfg.Detector.PixelPitchXMM = propagatePixelPitchXMM
		appCfg.Detector.PixelPitchYMM = propagatePixelPitchYMM
		appCfg.Detector.TemperatureK = propagateTemperatureK
		appCfg.Detector.MobilityModel = propagateMobilityModel
		appCfg.Detector.ImpactIonizationModel = propagateImpactModel
		appCfg.Propagation.Integrator = propagateIntegrator
		appCfg.Propagation.WorkerCount = propagateWorkerCount
		appCfg.Propagation.EnableDiffusion = propagateEnableDiffusion
		appCfg.Propagation.EnableTrapping = propagateEnableTrapping

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
			appCfg.Cli.FieldFile = propagateFieldFile
		}
		if cmd.Flags().Changed("depositsFile") {
			appCfg.Cli.DepositsFile = propagateDepositsFile
		}
		if cmd.Flags().Changed("numDeposits") {
			appCfg.Cli.NumDeposits = propagateNumDeposits
		}
		if cmd.Flags().Changed("dbPath") {
			appCfg.Cli.DbPath = propagateDbPath
		}
		if cmd.Flags().Changed("logLevel") {
			appCfg.Cli.LogLevel = propagateLogLevel
		}
		if cmd.Flags().Changed("thicknessMM") {
			appCfg.Detector.SensorThicknessMM = propagateSensorThicknessMM
		}
		if cmd.Flags().Changed("pitchXMM") {
			appCfg.Detector.PixelPitchXMM = propagatePixelPitchXMM
		}
		if cmd.Flags().Changed("pitchYMM") {
			appCfg.Detector.PixelPitchYMM = propagatePixelPitchYMM
		}
		if cmd.Flags().Changed("temperatureK") {
			appCfg.Detector.TemperatureK = propagateTemperatureK
		}
		if cmd.Flags().Changed("mobilityModel") {
			appCfg.Detector.MobilityModel = propagateMobilityModel
		}
		if cmd.Flags().Changed("impactModel") {
			appCfg.Detector.ImpactIonizationModel = propagateImpactModel
		}
		if cmd.Flags().Changed("integrator") {
			appCfg.Propagation.Integrator = propagateIntegrator
		}
		if cmd.Flags().Changed("workers") {
			appCfg.Propagation.WorkerCount = propagateWorkerCount
		}
		if cmd.Flags().Changed("diffusion") {
			appCfg.Propagation.EnableDiffusion = propagateEnableDiffusion
		}
		if cmd.Flags().Changed("trapping") {
			appCfg.Propagation.EnableTrapping = propagateEnableTrapping
		}

		if err := appCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration for propagate mode: %w", err)
		}

		orchestrator := cli.NewOrchestrator(appCfg)
		runErr := orchestrator.Run()

		if propagateMemProfileFile != "" && runErr == nil {
			f, err := os.Create(propagateMemProfileFile)
			if err != nil {
				log.Fatalf("could not create memory profile: %v", err)
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("could not write memory profile: %v", err)
			}
			fmt.Printf("memory heap profile saved to %s\n", propagateMemProfileFile)
		}

		if runErr != nil {
			return fmt.Errorf("propagate run failed: %w", runErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(propagateCmd)

	propagateCmd.Flags().StringVar(&propagateFieldFile, "fieldFile", "", "Path to an APF or INIT electric field / doping file.")
	propagateCmd.Flags().StringVar(&propagateDepositsFile, "depositsFile", "", "Path to a file of deposited charges (leave empty to synthesize).")
	propagateCmd.Flags().IntVar(&propagateNumDeposits, "numDeposits", 100, "Number of synthetic deposits to generate when depositsFile is empty.")
	propagateCmd.Flags().StringVar(&propagateDbPath, "dbPath", "", "Path for the SQLite diagnostics log (empty disables logging).")
	propagateCmd.Flags().StringVar(&propagateLogLevel, "logLevel", config.LogLevelWarn, "Console anomaly verbosity: debug, warn or error.")

	propagateCmd.Flags().Float64Var(&propagateSensorThicknessMM, "thicknessMM", 0.3, "Sensor thickness along Z, in mm.")
	propagateCmd.Flags().Float64Var(&propagatePixelPitchXMM, "pitchXMM", 0.055, "Pixel pitch along X, in mm.")
	propagateCmd.Flags().Float64Var(&propagatePixelPitchYMM, "pitchYMM", 0.055, "Pixel pitch along Y, in mm.")
	propagateCmd.Flags().Float64Var(&propagateTemperatureK, "temperatureK", 293.15, "Sensor temperature, in Kelvin.")
	propagateCmd.Flags().StringVar(&propagateMobilityModel, "mobilityModel", config.MobilityJacoboni, "Mobility model: jacoboni, canali, masetti or constant.")
	propagateCmd.Flags().StringVar(&propagateImpactModel, "impactModel", config.ImpactIonizationNone, "Impact ionization model: none, van-overstraeten or massey.")
	propagateCmd.Flags().StringVar(&propagateIntegrator, "integrator", config.IntegratorRKF5, "RK integrator: rk4 or rkf5.")
	propagateCmd.Flags().IntVar(&propagateWorkerCount, "workers", 0, "Worker goroutines for event-level parallelism (0 uses GOMAXPROCS).")
	propagateCmd.Flags().BoolVar(&propagateEnableDiffusion, "diffusion", true, "Enable the Gaussian diffusion kick each step.")
	propagateCmd.Flags().BoolVar(&propagateEnableTrapping, "trapping", false, "Enable the radiation-damage trapping/detrapping model (this command configures zero fluence, so no carrier is trapped).")

	propagateCmd.Flags().StringVar(&propagateCPUProfileFile, "cpuprofile", "", "Write a CPU profile to this file.")
	propagateCmd.Flags().StringVar(&propagateMemProfileFile, "memprofile", "", "Write a memory profile to this file.")
}
