// Package config provides the typed configuration for the simulation core:
// detector geometry and physics-model selection, propagation run
// parameters, mesh-conversion parameters, and the command-line/TOML
// surface that assembles them.
package config

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pixelmc/common"
)

const (
	// ModeConvertMesh drives the TCAD mesh converter.
	ModeConvertMesh = "convert-mesh"
	// ModePropagate runs a charge-carrier propagation batch.
	ModePropagate = "propagate"
	// ModeInspectField performs point-wise field/weighting-potential lookups.
	ModeInspectField = "inspect-field"
)

// SupportedModes lists all valid operation modes for the application.
var SupportedModes = []string{ModeConvertMesh, ModePropagate, ModeInspectField}

// Mobility model variants, dispatched by physics.NewMobilityModel.
const (
	MobilityJacoboni = "jacoboni"
	MobilityCanali   = "canali"
	MobilityMasetti  = "masetti"
	MobilityConstant = "constant"
)

var supportedMobilityModels = []string{MobilityJacoboni, MobilityCanali, MobilityMasetti, MobilityConstant}

// Impact-ionisation model variants, dispatched by physics.NewImpactIonizationModel.
const (
	ImpactIonizationNone             = "none"
	ImpactIonizationVanOverstraeten  = "van-overstraeten"
	ImpactIonizationMassey           = "massey"
)

var supportedImpactIonizationModels = []string{ImpactIonizationNone, ImpactIonizationVanOverstraeten, ImpactIonizationMassey}

// Integration methods, dispatched by rk.NewIntegrator.
const (
	IntegratorRK4  = "rk4"
	IntegratorRKF5 = "rkf5"
)

var supportedIntegrators = []string{IntegratorRK4, IntegratorRKF5}

// Log verbosity levels, gating the orchestrator's physics-anomaly
// console output (storage.DiagnosticsLogger persists every anomaly to
// SQLite regardless of this setting).
const (
	LogLevelDebug = "debug"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var supportedLogLevels = []string{LogLevelDebug, LogLevelWarn, LogLevelError}

// DetectorConfig describes the sensor geometry and the physics models used
// to transport carriers through it.
type DetectorConfig struct {
	SensorThicknessMM  float64 // sensor depth along Z.
	PixelPitchXMM      float64
	PixelPitchYMM      float64
	ImplantSizeXMM     float64
	ImplantSizeYMM     float64
	TemperatureK       float64
	BiasVoltageV       float64
	DepletionVoltageV  float64
	InductionHalfWidth int // pixel neighbourhood radius for the induction matrix.

	MobilityModel         string
	ImpactIonizationModel string
	DopingConcentrationCM float64 // uniform substrate doping, cm^-3; 0 means "no doping field configured".

	SurfaceReflectivityTop    float64 // [0,1]
	SurfaceReflectivityBottom float64 // [0,1]
}

// PropagationConfig governs a single propagation run: RK integration
// parameters, Monte Carlo process toggles and the output pulse binning.
type PropagationConfig struct {
	Integrator       string
	TimeStepInitial  float64 // ns
	TimeStepMin      float64 // ns
	TimeStepMax      float64 // ns
	MaxStepsPerGroup int

	ChargePerGroup          int  // carriers represented by one simulated group.
	EnableDiffusion         bool
	EnableRecombination     bool
	EnableTrapping          bool
	EnableMultiplication    bool
	MaxMultiplicationLevel  int

	TIntegrationNs float64 // hard bound on how long a single carrier group is tracked, ns.
	PulseBinNs     float64
	WorkerCount    int // 0 means runtime.GOMAXPROCS(0).
}

// MeshConvertConfig governs a single DF-ISE to APF mesh-conversion run.
type MeshConvertConfig struct {
	GridFile    string // prefix.grd
	DataFile    string // prefix.dat
	Observable  string // ElectricField, ElectrostaticPotential, DopingConcentration, ...
	OutputFile  string // APF output path.

	NX, NY, NZ int
	XMinMM, XMaxMM float64
	YMinMM, YMaxMM float64
	ZMinMM, ZMaxMM float64

	RadiusInitialMM float64
	RadiusMaxMM     float64
	WorkerCount     int
}

// CLIConfig holds the parameters selected by the subcommand / flags.
type CLIConfig struct {
	Mode string `json:"mode"`
	Seed int64  `json:"seed"`

	FieldFile     string `json:"field_file"`     // APF or INIT file for propagate/inspect-field.
	DepositsFile  string `json:"deposits_file"`  // optional file of deposited charges for propagate.
	NumDeposits   int    `json:"num_deposits"`   // synthetic deposits to generate if DepositsFile is empty.
	DbPath        string `json:"db_path"`        // SQLite diagnostics log path (empty disables).
	QueryX        float64 `json:"query_x"`
	QueryY        float64 `json:"query_y"`
	QueryZ        float64 `json:"query_z"`

	LogLevel string `json:"log_level"` // debug, warn or error; gates console anomaly reporting.
}

// AppConfig is the top-level configuration structure.
type AppConfig struct {
	Detector    DetectorConfig
	Propagation PropagationConfig
	MeshConvert MeshConvertConfig
	Cli         CLIConfig
}

// DefaultDetectorConfig returns sensible defaults for a 300 um planar
// silicon sensor.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SensorThicknessMM:         0.3,
		PixelPitchXMM:             0.055,
		PixelPitchYMM:             0.055,
		ImplantSizeXMM:            0.025,
		ImplantSizeYMM:            0.025,
		TemperatureK:              293.15,
		BiasVoltageV:              -150.0,
		DepletionVoltageV:         -60.0,
		InductionHalfWidth:        3,
		MobilityModel:             MobilityJacoboni,
		ImpactIonizationModel:     ImpactIonizationNone,
		DopingConcentrationCM:     0,
		SurfaceReflectivityTop:    0,
		SurfaceReflectivityBottom: 0,
	}
}

// DefaultPropagationConfig returns sensible defaults for a propagation run.
func DefaultPropagationConfig() PropagationConfig {
	return PropagationConfig{
		Integrator:             IntegratorRKF5,
		TimeStepInitial:        0.01,
		TimeStepMin:            0.001,
		TimeStepMax:            0.1,
		MaxStepsPerGroup:       10000,
		ChargePerGroup:         10,
		EnableDiffusion:        true,
		EnableRecombination:    true,
		EnableTrapping:         false,
		EnableMultiplication:   false,
		MaxMultiplicationLevel: 10,
		TIntegrationNs:         25.0,
		PulseBinNs:             0.1,
		WorkerCount:            0,
	}
}

// DefaultMeshConvertConfig returns sensible defaults for a mesh conversion run.
func DefaultMeshConvertConfig() MeshConvertConfig {
	return MeshConvertConfig{
		Observable:      "ElectricField",
		NX:              1,
		NY:              100,
		NZ:              100,
		RadiusInitialMM: 0.001,
		RadiusMaxMM:     1.0,
		WorkerCount:     0,
	}
}

// LoadCLIConfig populates a CLIConfig struct by parsing flags from args
// using fSet. Useful for tests and programmatic configuration outside the
// Cobra command flow, which defines and parses its own flags directly.
func LoadCLIConfig(fSet *flag.FlagSet, args []string) (CLIConfig, error) {
	cfg := CLIConfig{}

	fSet.StringVar(&cfg.Mode, "mode", ModePropagate, fmt.Sprintf("Operation mode: '%s', '%s', or '%s'.", ModeConvertMesh, ModePropagate, ModeInspectField))
	fSet.Int64Var(&cfg.Seed, "seed", 0, "Seed for the random number generator (0 uses current time).")
	fSet.StringVar(&cfg.FieldFile, "fieldFile", "", "Path to an APF or INIT field file.")
	fSet.StringVar(&cfg.DepositsFile, "depositsFile", "", "Path to a file of deposited charges (propagate mode).")
	fSet.IntVar(&cfg.NumDeposits, "numDeposits", 100, "Number of synthetic deposits to generate if depositsFile is empty.")
	fSet.StringVar(&cfg.DbPath, "dbPath", "", "Path for the SQLite diagnostics log (empty disables logging).")
	fSet.Float64Var(&cfg.QueryX, "queryX", 0, "X coordinate for inspect-field mode (mm).")
	fSet.Float64Var(&cfg.QueryY, "queryY", 0, "Y coordinate for inspect-field mode (mm).")
	fSet.Float64Var(&cfg.QueryZ, "queryZ", 0, "Z coordinate for inspect-field mode (mm).")
	fSet.StringVar(&cfg.LogLevel, "logLevel", LogLevelWarn, "Console anomaly verbosity: debug, warn or error.")

	var filtered []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-test.") {
			filtered = append(filtered, arg)
		}
	}

	if err := fSet.Parse(filtered); err != nil {
		return cfg, fmt.Errorf("error parsing flags: %w", err)
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.FieldFile != "" {
		cfg.FieldFile = filepath.Clean(cfg.FieldFile)
	}
	if cfg.DepositsFile != "" {
		cfg.DepositsFile = filepath.Clean(cfg.DepositsFile)
	}
	if cfg.DbPath != "" {
		cfg.DbPath = filepath.Clean(cfg.DbPath)
	}

	return cfg, nil
}

// NewAppConfig builds an AppConfig from defaults plus a slice of
// command-line-style arguments, validating the result. Primarily useful
// for tests; the Cobra commands build AppConfig themselves so they can
// layer TOML-file overrides in between defaults and flags.
func NewAppConfig(args []string) (*AppConfig, error) {
	cliCfg, err := LoadCLIConfig(flag.NewFlagSet("pixelmc", flag.ContinueOnError), args)
	if err != nil {
		return nil, fmt.Errorf("failed to load CLI config: %w", err)
	}

	appCfg := &AppConfig{
		Detector:    DefaultDetectorConfig(),
		Propagation: DefaultPropagationConfig(),
		MeshConvert: DefaultMeshConvertConfig(),
		Cli:         cliCfg,
	}

	if err := appCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return appCfg, nil
}

// EffectiveLogLevel returns the configured LogLevel, defaulting to
// LogLevelWarn when unset.
func (c CLIConfig) EffectiveLogLevel() string {
	if c.LogLevel == "" {
		return LogLevelWarn
	}
	return c.LogLevel
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Validate checks the AppConfig for internal consistency: parameter
// positivity, enum membership and cross-field constraints between the
// detector, propagation and mesh-conversion configurations.
func (ac *AppConfig) Validate() error {
	modeValid := contains(SupportedModes, ac.Cli.Mode)
	if !modeValid {
		return fmt.Errorf("invalid mode '%s', supported modes are: %s", ac.Cli.Mode, strings.Join(SupportedModes, ", "))
	}
	if ac.Cli.LogLevel != "" && !contains(supportedLogLevels, ac.Cli.LogLevel) {
		return fmt.Errorf("invalid LogLevel '%s', supported: %s", ac.Cli.LogLevel, strings.Join(supportedLogLevels, ", "))
	}

	switch ac.Cli.Mode {
	case ModeConvertMesh:
		return ac.validateMeshConvert()
	case ModeInspectField:
		if ac.Cli.FieldFile == "" {
			return fmt.Errorf("fieldFile must be specified for mode '%s'", ac.Cli.Mode)
		}
		return nil
	case ModePropagate:
		if err := ac.validateDetector(); err != nil {
			return err
		}
		return ac.validatePropagation()
	}
	return nil
}

func (ac *AppConfig) validateDetector() error {
	d := &ac.Detector
	if d.SensorThicknessMM <= 0 {
		return fmt.Errorf("SensorThicknessMM must be positive, got %f", d.SensorThicknessMM)
	}
	if d.PixelPitchXMM <= 0 || d.PixelPitchYMM <= 0 {
		return fmt.Errorf("pixel pitch must be positive, got (%f, %f)", d.PixelPitchXMM, d.PixelPitchYMM)
	}
	if d.ImplantSizeXMM <= 0 || d.ImplantSizeYMM <= 0 {
		return fmt.Errorf("implant size must be positive, got (%f, %f)", d.ImplantSizeXMM, d.ImplantSizeYMM)
	}
	if d.ImplantSizeXMM > d.PixelPitchXMM || d.ImplantSizeYMM > d.PixelPitchYMM {
		return fmt.Errorf("implant size (%f, %f) cannot exceed pixel pitch (%f, %f)", d.ImplantSizeXMM, d.ImplantSizeYMM, d.PixelPitchXMM, d.PixelPitchYMM)
	}
	if d.TemperatureK <= 0 {
		return fmt.Errorf("TemperatureK must be positive, got %f", d.TemperatureK)
	}
	if d.InductionHalfWidth < 0 {
		return fmt.Errorf("InductionHalfWidth must be non-negative, got %d", d.InductionHalfWidth)
	}
	if !contains(supportedMobilityModels, d.MobilityModel) {
		return fmt.Errorf("invalid MobilityModel '%s', supported: %s", d.MobilityModel, strings.Join(supportedMobilityModels, ", "))
	}
	if d.MobilityModel == MobilityMasetti && d.DopingConcentrationCM <= 0 {
		return fmt.Errorf("MobilityModel 'masetti' requires a positive DopingConcentrationCM: %w", common.ErrModelUnsuitable)
	}
	if !contains(supportedImpactIonizationModels, d.ImpactIonizationModel) {
		return fmt.Errorf("invalid ImpactIonizationModel '%s', supported: %s", d.ImpactIonizationModel, strings.Join(supportedImpactIonizationModels, ", "))
	}
	if d.SurfaceReflectivityTop < 0 || d.SurfaceReflectivityTop > 1 {
		return fmt.Errorf("SurfaceReflectivityTop must be in [0,1], got %f", d.SurfaceReflectivityTop)
	}
	if d.SurfaceReflectivityBottom < 0 || d.SurfaceReflectivityBottom > 1 {
		return fmt.Errorf("SurfaceReflectivityBottom must be in [0,1], got %f", d.SurfaceReflectivityBottom)
	}
	return nil
}

func (ac *AppConfig) validatePropagation() error {
	p := &ac.Propagation
	if !contains(supportedIntegrators, p.Integrator) {
		return fmt.Errorf("invalid Integrator '%s', supported: %s", p.Integrator, strings.Join(supportedIntegrators, ", "))
	}
	if p.TimeStepMin <= 0 {
		return fmt.Errorf("TimeStepMin must be positive, got %f", p.TimeStepMin)
	}
	if p.TimeStepMax < p.TimeStepMin {
		return fmt.Errorf("TimeStepMax (%f) must be >= TimeStepMin (%f)", p.TimeStepMax, p.TimeStepMin)
	}
	if p.TimeStepInitial < p.TimeStepMin || p.TimeStepInitial > p.TimeStepMax {
		return fmt.Errorf("TimeStepInitial (%f) must be within [TimeStepMin, TimeStepMax] = [%f, %f]", p.TimeStepInitial, p.TimeStepMin, p.TimeStepMax)
	}
	if p.MaxStepsPerGroup <= 0 {
		return fmt.Errorf("MaxStepsPerGroup must be positive, got %d", p.MaxStepsPerGroup)
	}
	if p.ChargePerGroup <= 0 {
		return fmt.Errorf("ChargePerGroup must be positive, got %d", p.ChargePerGroup)
	}
	if p.EnableMultiplication && p.MaxMultiplicationLevel <= 0 {
		return fmt.Errorf("MaxMultiplicationLevel must be positive when EnableMultiplication is set, got %d", p.MaxMultiplicationLevel)
	}
	if p.TIntegrationNs <= 0 {
		return fmt.Errorf("TIntegrationNs must be positive, got %f", p.TIntegrationNs)
	}
	if p.PulseBinNs <= 0 {
		return fmt.Errorf("PulseBinNs must be positive, got %f", p.PulseBinNs)
	}
	if p.WorkerCount < 0 {
		return fmt.Errorf("WorkerCount must be non-negative, got %d", p.WorkerCount)
	}
	return nil
}

func (ac *AppConfig) validateMeshConvert() error {
	m := &ac.MeshConvert
	if m.GridFile == "" || m.DataFile == "" {
		return fmt.Errorf("GridFile and DataFile must both be specified for mode '%s'", ac.Cli.Mode)
	}
	if m.OutputFile == "" {
		return fmt.Errorf("OutputFile must be specified for mode '%s'", ac.Cli.Mode)
	}
	if m.NX <= 0 || m.NY <= 0 || m.NZ <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got (%d, %d, %d)", m.NX, m.NY, m.NZ)
	}
	if m.XMaxMM < m.XMinMM || m.YMaxMM < m.YMinMM || m.ZMaxMM < m.ZMinMM {
		return fmt.Errorf("each output grid axis max must be >= min")
	}
	if m.RadiusInitialMM <= 0 {
		return fmt.Errorf("RadiusInitialMM must be positive, got %f", m.RadiusInitialMM)
	}
	if m.RadiusMaxMM < m.RadiusInitialMM {
		return fmt.Errorf("RadiusMaxMM (%f) must be >= RadiusInitialMM (%f)", m.RadiusMaxMM, m.RadiusInitialMM)
	}
	if m.WorkerCount < 0 {
		return fmt.Errorf("WorkerCount must be non-negative, got %d", m.WorkerCount)
	}
	return nil
}
