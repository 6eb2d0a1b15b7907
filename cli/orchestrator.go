// Package cli provides the command-line orchestrator: it interprets the
// parsed AppConfig, wires together the tcad/meshconv, field/detector and
// propagator packages, and drives one of the three operation modes
// (convert-mesh, propagate, inspect-field).
package cli

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pixelmc/common"
	"pixelmc/config"
	"pixelmc/detector"
	"pixelmc/field"
	"pixelmc/meshconv"
	"pixelmc/meshio"
	"pixelmc/physics"
	"pixelmc/propagator"
	"pixelmc/storage"
	"pixelmc/tcad"
)

// Orchestrator drives a single run of the application from a fully
// populated AppConfig.
type Orchestrator struct {
	AppCfg *config.AppConfig
	Logger *storage.DiagnosticsLogger
}

// NewOrchestrator builds an Orchestrator over the given configuration.
func NewOrchestrator(appCfg *config.AppConfig) *Orchestrator {
	return &Orchestrator{AppCfg: appCfg}
}

// Run executes the selected mode. It is the orchestrator's sole entry
// point, called once per process invocation.
func (o *Orchestrator) Run() error {
	fmt.Printf("pixelmc: mode=%s seed=%d\n", o.AppCfg.Cli.Mode, o.AppCfg.Cli.Seed)

	if err := o.initializeLogger(); err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	if o.Logger != nil {
		defer func() {
			if err := o.Logger.Close(); err != nil {
				log.Printf("error closing diagnostics logger: %v", err)
			}
		}()
	}

	start := time.Now()
	var err error
	switch o.AppCfg.Cli.Mode {
	case config.ModeConvertMesh:
		err = o.runConvertMesh()
	case config.ModePropagate:
		err = o.runPropagate()
	case config.ModeInspectField:
		err = o.runInspectField()
	default:
		return fmt.Errorf("unknown mode %q", o.AppCfg.Cli.Mode)
	}
	if err != nil {
		return fmt.Errorf("mode %q failed: %w", o.AppCfg.Cli.Mode, err)
	}

	fmt.Printf("pixelmc: finished in %s\n", time.Since(start))
	return nil
}

// initializeLogger opens the diagnostics SQLite database for propagate
// runs when a DbPath was configured.
func (o *Orchestrator) initializeLogger() error {
	cfg := &o.AppCfg.Cli
	if cfg.DbPath == "" || cfg.Mode != config.ModePropagate {
		return nil
	}
	cleanPath, err := validatePath(cfg.DbPath, false)
	if err != nil {
		return err
	}
	logger, err := storage.NewDiagnosticsLogger(cleanPath)
	if err != nil {
		return err
	}
	o.Logger = logger
	return nil
}

// validatePath cleans a user-supplied path and rejects attempts to
// escape the working directory via "..", as either an input or output
// file. forRead additionally requires the file to already exist.
func validatePath(rawPath string, forRead bool) (string, error) {
	cleaned := filepath.Clean(rawPath)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("path %q must not contain '..'", rawPath)
	}
	if forRead {
		if _, err := os.Stat(cleaned); err != nil {
			return "", fmt.Errorf("cannot read %q: %w", cleaned, err)
		}
	}
	return cleaned, nil
}

// runConvertMesh reads a DF-ISE grid/field pair, interpolates it onto a
// regular output grid and writes the result as an APF field file.
func (o *Orchestrator) runConvertMesh() error {
	m := &o.AppCfg.MeshConvert

	gridPath, err := validatePath(m.GridFile, true)
	if err != nil {
		return err
	}
	dataPath, err := validatePath(m.DataFile, true)
	if err != nil {
		return err
	}
	outPath, err := validatePath(m.OutputFile, false)
	if err != nil {
		return err
	}

	gridFile, err := os.Open(gridPath)
	if err != nil {
		return fmt.Errorf("open grid file: %w", err)
	}
	defer gridFile.Close()
	grid, err := tcad.ReadGrid(gridFile)
	if err != nil {
		return fmt.Errorf("read DF-ISE grid: %w", err)
	}

	dataFile, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer dataFile.Close()
	fieldData, err := tcad.ReadFieldData(dataFile)
	if err != nil {
		return fmt.Errorf("read DF-ISE field data: %w", err)
	}

	values, err := flattenObservable(grid, fieldData, m.Observable)
	if err != nil {
		return err
	}

	mesh, err := meshconv.NewMesh(grid.Vertices, values)
	if err != nil {
		return fmt.Errorf("build mesh: %w", err)
	}

	cfg := meshconv.Config{
		NX: m.NX, NY: m.NY, NZ: m.NZ,
		Min:           common.Point3D{X: common.Coordinate(m.XMinMM), Y: common.Coordinate(m.YMinMM), Z: common.Coordinate(m.ZMinMM)},
		Max:           common.Point3D{X: common.Coordinate(m.XMaxMM), Y: common.Coordinate(m.YMaxMM), Z: common.Coordinate(m.ZMaxMM)},
		RadiusInitial: m.RadiusInitialMM,
		RadiusMax:     m.RadiusMaxMM,
		RadiusStep:    2.0,
		VolumeCut:     1e-12,
		MaxCandidateNeighbors: 64,
		WorkerCount:           m.WorkerCount,
		Remap:                 meshconv.IdentityCoordMap(),
	}

	outGrid, err := meshconv.Convert(mesh, cfg)
	if err != nil {
		return fmt.Errorf("convert mesh: %w", err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer outFile.Close()
	header := fmt.Sprintf("pixelmc mesh-converter output: %s", m.Observable)
	if err := meshio.WriteAPF(outFile, header, outGrid); err != nil {
		return fmt.Errorf("write APF file: %w", err)
	}

	fmt.Printf("converted %s -> %s (%d vertices)\n", m.DataFile, m.OutputFile, len(grid.Vertices))
	return nil
}

// flattenObservable extracts a single named field observable from a
// DF-ISE FieldData into per-vertex value rows matching grid's vertex
// order, one row per vertex with either 1 (scalar) or 3 (vector)
// components.
func flattenObservable(grid *tcad.Grid, data *tcad.FieldData, observable string) ([][]float64, error) {
	found := false
	merged := make(map[int][]float64)
	for region, observables := range data.Values {
		values, ok := observables[observable]
		if !ok {
			continue
		}
		found = true
		vertexIdxs, ok := grid.RegionVertices[region]
		if !ok {
			continue
		}
		n := len(vertexIdxs)
		if n == 0 {
			continue
		}
		comps := len(values) / n
		if comps == 0 {
			continue
		}
		for i, v := range vertexIdxs {
			merged[v] = values[i*comps : (i+1)*comps]
		}
	}
	if !found {
		return nil, fmt.Errorf("observable %q not present in field data: %w", observable, common.ErrField)
	}

	out := make([][]float64, len(grid.Vertices))
	for i := range out {
		if v, ok := merged[i]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0}
		}
	}
	return out, nil
}

// runPropagate loads (or synthesizes) a field and deposit set and runs
// a full event-level propagation batch, printing a one-line summary of
// event, deposit and touched-pixel counts to stdout.
func (o *Orchestrator) runPropagate() error {
	cli := &o.AppCfg.Cli

	fields, err := o.loadFieldStore()
	if err != nil {
		return err
	}

	recombination := physics.NewRecombinationModel(o.AppCfg.Propagation.EnableRecombination, o.AppCfg.Detector.TemperatureK)
	trapping := physics.NewTrappingModel(o.AppCfg.Propagation.EnableTrapping, o.AppCfg.Detector.TemperatureK, 0)
	detrapping := physics.NewConstantDetrapping(1e4, 1e4)

	sensor, err := detector.NewSensor(o.AppCfg.Detector, fields, recombination, trapping, detrapping)
	if err != nil {
		return fmt.Errorf("build sensor: %w", err)
	}

	deposits, err := o.loadOrSynthesizeDeposits(sensor)
	if err != nil {
		return err
	}

	runner := propagator.NewRunner(sensor, o.AppCfg.Propagation, cli.Seed)
	events := make([][]propagator.DepositedCharge, len(deposits))
	for i, d := range deposits {
		events[i] = []propagator.DepositedCharge{d}
	}

	results := runner.RunEvents(events, o.AppCfg.Propagation.WorkerCount)

	debugAnomalies := cli.EffectiveLogLevel() == config.LogLevelDebug
	for i, event := range results {
		if o.Logger != nil {
			if err := o.Logger.LogEvent(int64(i), event, o.AppCfg.Propagation.MaxMultiplicationLevel); err != nil {
				log.Printf("warning: failed to log event %d: %v", i, err)
			}
		}
		if debugAnomalies {
			logGroupAnomalies(i, event, o.AppCfg.Propagation.MaxMultiplicationLevel)
		}
	}

	summary := storage.SummarizeRun(results)
	fmt.Printf("propagated %d events, %d deposits, %d pixels touched\n", summary.EventCount, summary.DepositCount, len(summary.Pixels))
	return nil
}

// logGroupAnomalies prints the same anomaly conditions
// storage.DiagnosticsLogger persists to the Anomalies table, gated
// behind LogLevelDebug since they are routine under pathological but
// expected configurations (e.g. a long trap-and-hold chain or a high
// multiplication gain) rather than genuine warnings.
func logGroupAnomalies(eventNumber int, event propagator.PropagatedCharge, maxMultiplicationLevel int) {
	for gi, g := range event.Groups {
		if g.State == common.Motion {
			log.Printf("debug: event %d group %d still in motion after %d steps", eventNumber, gi, g.Steps)
		}
		if maxMultiplicationLevel > 0 && g.MultiplicationLevel >= maxMultiplicationLevel {
			log.Printf("debug: event %d group %d hit the multiplication cap, charge grew to %g carriers", eventNumber, gi, g.Charge)
		}
	}
}

// loadFieldStore builds a field.FieldStore from the configured field
// file (APF or INIT, dispatched by extension), falling back to the
// analytic pad weighting potential since a single field file only ever
// carries one field.
func (o *Orchestrator) loadFieldStore() (*field.FieldStore, error) {
	cli := &o.AppCfg.Cli
	det := &o.AppCfg.Detector

	store := &field.FieldStore{
		WeightingPad: &field.PadWeightingPotential{
			PadSizeX:  det.ImplantSizeXMM,
			PadSizeY:  det.ImplantSizeYMM,
			Thickness: det.SensorThicknessMM,
		},
		PixelPitch: common.Point3D{X: common.Coordinate(det.PixelPitchXMM), Y: common.Coordinate(det.PixelPitchYMM)},
	}

	if cli.FieldFile == "" {
		return store, nil
	}
	path, err := validatePath(cli.FieldFile, true)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open field file: %w", err)
	}
	defer f.Close()

	var grid *field.FieldGrid
	if strings.HasSuffix(path, ".init") {
		_, grid, err = meshio.ReadINIT(f)
	} else {
		_, grid, err = meshio.ReadAPF(f)
	}
	if err != nil {
		return nil, fmt.Errorf("read field file: %w", err)
	}

	if grid.N == 3 {
		store.Electric = grid
		store.ElectricMapping = field.MappingSensor
	} else {
		store.Doping = grid
		store.DopingMapping = field.MappingSensor
	}
	return store, nil
}

// loadOrSynthesizeDeposits returns an error if a deposits file is
// configured (reading one is not supported); otherwise it generates
// NumDeposits uniformly distributed electron deposits with x and y in
// [-PitchX/2, PitchX/2) and z in [0, thickness).
func (o *Orchestrator) loadOrSynthesizeDeposits(sensor *detector.Sensor) ([]propagator.DepositedCharge, error) {
	cli := &o.AppCfg.Cli
	if cli.DepositsFile != "" {
		return nil, fmt.Errorf("reading deposits from file is not yet supported; leave depositsFile empty to synthesize")
	}

	rng := rand.New(rand.NewSource(cli.Seed))
	n := cli.NumDeposits
	if n <= 0 {
		n = 1
	}
	deposits := make([]propagator.DepositedCharge, n)
	thickness := sensor.ThicknessMM
	pitch := sensor.Pixel.PitchX
	for i := range deposits {
		deposits[i] = propagator.DepositedCharge{
			Position: common.Point3D{
				X: common.Coordinate((rng.Float64() - 0.5) * pitch),
				Y: common.Coordinate((rng.Float64() - 0.5) * pitch),
				Z: common.Coordinate(rng.Float64() * thickness),
			},
			TimeNs:      0,
			NumCarriers: 1000 + rng.Intn(20000),
			Type:        common.Electron,
		}
	}
	return deposits, nil
}

// runInspectField reports the electric field, doping and weighting
// potential at a single point, for quick sanity-checking of a converted
// field file against the original simulation.
func (o *Orchestrator) runInspectField() error {
	store, err := o.loadFieldStore()
	if err != nil {
		return err
	}
	cli := &o.AppCfg.Cli
	p := common.Point3D{X: common.Coordinate(cli.QueryX), Y: common.Coordinate(cli.QueryY), Z: common.Coordinate(cli.QueryZ)}

	fmt.Printf("query point: (%g, %g, %g) mm\n", cli.QueryX, cli.QueryY, cli.QueryZ)

	if e, err := store.GetElectric(p); err == nil {
		mag := math.Sqrt(float64(e.X)*float64(e.X) + float64(e.Y)*float64(e.Y) + float64(e.Z)*float64(e.Z))
		fmt.Printf("electric field: (%g, %g, %g) V/mm, |E|=%g\n", e.X, e.Y, e.Z, mag)
	} else {
		fmt.Printf("electric field: unavailable (%v)\n", err)
	}

	if w, err := store.GetWeightingPotential(p); err == nil {
		fmt.Printf("weighting potential: %g\n", w)
	} else {
		fmt.Printf("weighting potential: unavailable (%v)\n", err)
	}

	if d, err := store.GetDoping(p); err == nil {
		fmt.Printf("doping: %g cm^-3\n", d)
	}

	return nil
}
