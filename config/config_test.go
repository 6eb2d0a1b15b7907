package config

import (
	"flag"
	"strings"
	"testing"
)

func TestDefaultDetectorConfig(t *testing.T) {
	d := DefaultDetectorConfig()
	if d.SensorThicknessMM != 0.3 {
		t.Errorf("Expected SensorThicknessMM 0.3, got %f", d.SensorThicknessMM)
	}
	if d.MobilityModel != MobilityJacoboni {
		t.Errorf("Expected default MobilityModel %s, got %s", MobilityJacoboni, d.MobilityModel)
	}
	if d.ImplantSizeXMM > d.PixelPitchXMM {
		t.Errorf("default implant size exceeds pixel pitch")
	}
}

func TestLoadCLIConfig_DefaultValues(t *testing.T) {
	fSet := flag.NewFlagSet("testDefaults", flag.ContinueOnError)
	cfg, err := LoadCLIConfig(fSet, nil)
	if err != nil {
		t.Fatalf("LoadCLIConfig failed with default args: %v", err)
	}
	if cfg.Mode != ModePropagate {
		t.Errorf("Expected default Mode %s, got %s", ModePropagate, cfg.Mode)
	}
	if cfg.NumDeposits != 100 {
		t.Errorf("Expected default NumDeposits 100, got %d", cfg.NumDeposits)
	}
	if cfg.Seed == 0 {
		t.Error("Expected default Seed to be initialized from time, but was 0")
	}
}

func TestLoadCLIConfig_CustomValues(t *testing.T) {
	fSet := flag.NewFlagSet("testCustom", flag.ContinueOnError)
	args := []string{
		"-mode", ModeInspectField,
		"-fieldFile", "field.apf",
		"-seed", "12345",
		"-queryX", "1.5",
	}
	cfg, err := LoadCLIConfig(fSet, args)
	if err != nil {
		t.Fatalf("LoadCLIConfig failed with custom args: %v", err)
	}
	if cfg.Mode != ModeInspectField {
		t.Errorf("Expected Mode %s, got %s", ModeInspectField, cfg.Mode)
	}
	if cfg.FieldFile != "field.apf" {
		t.Errorf("Expected FieldFile field.apf, got %s", cfg.FieldFile)
	}
	if cfg.Seed != 12345 {
		t.Errorf("Expected Seed 12345, got %d", cfg.Seed)
	}
	if cfg.QueryX != 1.5 {
		t.Errorf("Expected QueryX 1.5, got %f", cfg.QueryX)
	}
}

func TestLoadCLIConfig_ErrorOnUnknownFlag(t *testing.T) {
	fSet := flag.NewFlagSet("testError", flag.ContinueOnError)
	if _, err := LoadCLIConfig(fSet, []string{"-unknownFlag", "value"}); err == nil {
		t.Error("Expected error for unknown flag, got nil")
	}
}

func TestNewAppConfig_Invalid(t *testing.T) {
	_, err := NewAppConfig([]string{"-mode", "invalid_mode"})
	if err == nil {
		t.Fatal("NewAppConfig should have failed with invalid mode, but succeeded")
	}
	if !strings.Contains(err.Error(), "invalid mode 'invalid_mode'") {
		t.Errorf("Expected error message to contain 'invalid mode', got: %v", err)
	}
}

func TestNewAppConfig_InspectFieldRequiresFile(t *testing.T) {
	_, err := NewAppConfig([]string{"-mode", ModeInspectField})
	if err == nil {
		t.Fatal("NewAppConfig should have failed without fieldFile, but succeeded")
	}
	if !strings.Contains(err.Error(), "fieldFile must be specified") {
		t.Errorf("expected fieldFile error, got: %v", err)
	}
}

func TestAppConfig_Validate_PropagateValid(t *testing.T) {
	appCfg := &AppConfig{
		Detector:    DefaultDetectorConfig(),
		Propagation: DefaultPropagationConfig(),
		MeshConvert: DefaultMeshConvertConfig(),
		Cli:         CLIConfig{Mode: ModePropagate},
	}
	if err := appCfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestAppConfig_Validate_LogLevel(t *testing.T) {
	base := func(level string) *AppConfig {
		return &AppConfig{
			Detector:    DefaultDetectorConfig(),
			Propagation: DefaultPropagationConfig(),
			MeshConvert: DefaultMeshConvertConfig(),
			Cli:         CLIConfig{Mode: ModePropagate, LogLevel: level},
		}
	}

	if err := base("").Validate(); err != nil {
		t.Errorf("empty LogLevel should be valid (defaults to warn), got: %v", err)
	}
	for _, level := range supportedLogLevels {
		if err := base(level).Validate(); err != nil {
			t.Errorf("LogLevel %q should be valid, got: %v", level, err)
		}
	}
	if err := base("verbose").Validate(); err == nil {
		t.Error("expected an error for an unsupported LogLevel")
	}
}

func TestCLIConfig_EffectiveLogLevel(t *testing.T) {
	if got := (CLIConfig{}).EffectiveLogLevel(); got != LogLevelWarn {
		t.Errorf("expected default EffectiveLogLevel %q, got %q", LogLevelWarn, got)
	}
	if got := (CLIConfig{LogLevel: LogLevelDebug}).EffectiveLogLevel(); got != LogLevelDebug {
		t.Errorf("expected EffectiveLogLevel %q, got %q", LogLevelDebug, got)
	}
}

func TestAppConfig_Validate_DetectorInvalidCases(t *testing.T) {
	tests := []struct {
		name        string
		modifier    func(d *DetectorConfig)
		expectedErr string
	}{
		{"negative thickness", func(d *DetectorConfig) { d.SensorThicknessMM = -1 }, "SensorThicknessMM must be positive"},
		{"zero pitch", func(d *DetectorConfig) { d.PixelPitchXMM = 0 }, "pixel pitch must be positive"},
		{"implant exceeds pitch", func(d *DetectorConfig) { d.ImplantSizeXMM = d.PixelPitchXMM * 2 }, "implant size"},
		{"non-positive temperature", func(d *DetectorConfig) { d.TemperatureK = 0 }, "TemperatureK must be positive"},
		{"unknown mobility model", func(d *DetectorConfig) { d.MobilityModel = "bogus" }, "invalid MobilityModel"},
		{"masetti without doping", func(d *DetectorConfig) { d.MobilityModel = MobilityMasetti; d.DopingConcentrationCM = 0 }, "requires a positive DopingConcentrationCM"},
		{"unknown impact ionization", func(d *DetectorConfig) { d.ImpactIonizationModel = "bogus" }, "invalid ImpactIonizationModel"},
		{"bad reflectivity", func(d *DetectorConfig) { d.SurfaceReflectivityTop = 1.5 }, "SurfaceReflectivityTop must be in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDetectorConfig()
			tt.modifier(&d)
			appCfg := &AppConfig{Detector: d, Propagation: DefaultPropagationConfig(), Cli: CLIConfig{Mode: ModePropagate}}
			err := appCfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error for %s, got nil", tt.name)
			}
			if !strings.Contains(err.Error(), tt.expectedErr) {
				t.Errorf("Validate() error = %q, expected to contain %q", err.Error(), tt.expectedErr)
			}
		})
	}
}

func TestAppConfig_Validate_PropagationInvalidCases(t *testing.T) {
	tests := []struct {
		name        string
		modifier    func(p *PropagationConfig)
		expectedErr string
	}{
		{"unknown integrator", func(p *PropagationConfig) { p.Integrator = "bogus" }, "invalid Integrator"},
		{"non-positive step min", func(p *PropagationConfig) { p.TimeStepMin = 0 }, "TimeStepMin must be positive"},
		{"step max below min", func(p *PropagationConfig) { p.TimeStepMax = p.TimeStepMin / 2 }, "TimeStepMax"},
		{"initial step out of range", func(p *PropagationConfig) { p.TimeStepInitial = p.TimeStepMax * 2 }, "TimeStepInitial"},
		{"zero max steps", func(p *PropagationConfig) { p.MaxStepsPerGroup = 0 }, "MaxStepsPerGroup must be positive"},
		{"zero charge per group", func(p *PropagationConfig) { p.ChargePerGroup = 0 }, "ChargePerGroup must be positive"},
		{"multiplication without level", func(p *PropagationConfig) { p.EnableMultiplication = true; p.MaxMultiplicationLevel = 0 }, "MaxMultiplicationLevel"},
		{"non-positive integration window", func(p *PropagationConfig) { p.TIntegrationNs = 0 }, "TIntegrationNs must be positive"},
		{"non-positive bin width", func(p *PropagationConfig) { p.PulseBinNs = 0 }, "PulseBinNs must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPropagationConfig()
			tt.modifier(&p)
			appCfg := &AppConfig{Detector: DefaultDetectorConfig(), Propagation: p, Cli: CLIConfig{Mode: ModePropagate}}
			err := appCfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error for %s, got nil", tt.name)
			}
			if !strings.Contains(err.Error(), tt.expectedErr) {
				t.Errorf("Validate() error = %q, expected to contain %q", err.Error(), tt.expectedErr)
			}
		})
	}
}

func TestAppConfig_Validate_MeshConvertInvalidCases(t *testing.T) {
	valid := func() MeshConvertConfig {
		m := DefaultMeshConvertConfig()
		m.GridFile = "a.grd"
		m.DataFile = "a.dat"
		m.OutputFile = "a.apf"
		m.XMaxMM, m.YMaxMM, m.ZMaxMM = 1, 1, 1
		return m
	}

	tests := []struct {
		name        string
		modifier    func(m *MeshConvertConfig)
		expectedErr string
	}{
		{"missing grid file", func(m *MeshConvertConfig) { m.GridFile = "" }, "GridFile and DataFile"},
		{"missing output file", func(m *MeshConvertConfig) { m.OutputFile = "" }, "OutputFile must be specified"},
		{"zero grid dims", func(m *MeshConvertConfig) { m.NX = 0 }, "grid dimensions must be positive"},
		{"max below min", func(m *MeshConvertConfig) { m.XMaxMM = -1 }, "axis max must be >= min"},
		{"radius max below initial", func(m *MeshConvertConfig) { m.RadiusMaxMM = m.RadiusInitialMM / 2 }, "RadiusMaxMM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.modifier(&m)
			appCfg := &AppConfig{MeshConvert: m, Cli: CLIConfig{Mode: ModeConvertMesh}}
			err := appCfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error for %s, got nil", tt.name)
			}
			if !strings.Contains(err.Error(), tt.expectedErr) {
				t.Errorf("Validate() error = %q, expected to contain %q", err.Error(), tt.expectedErr)
			}
		})
	}
}
