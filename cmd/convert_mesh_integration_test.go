package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"pixelmc/cli"
	"pixelmc/config"
)

// singleTetGridFixture describes one tetrahedron spanning the unit cube's
// corner, matching the grammar exercised by the tcad package's own tests.
const singleTetGridFixture = `DF-ISE text {
}
Info {
  dimension = 3
}
Vertices (4) {
  0.0 0.0 0.0
  1.0 0.0 0.0
  0.0 1.0 0.0
  0.0 0.0 1.0
}
Edges (6) {
  0 1
  0 2
  0 3
  1 2
  1 3
  2 3
}
Faces (4) {
  3 0 3 -5
  3 1 4 -5
  3 2 5 -4
  3 0 1 2
}
Elements (1) {
  5 0 1 2 3
}
Region ("bulk") {
  Elements (1) {
    0
  }
}
`

// singleTetFieldFixture assigns one potential value per vertex of the
// fixture above.
const singleTetFieldFixture = `DF-ISE text {
}
Info {
  dimension = 1
}
Data {
  Dataset ("ElectrostaticPotential") {
    function = ElectrostaticPotential
    type = scalar
    dimension = 1
    location = vertex
    validity = [ "bulk" ]
    Values (4) {
      0.0
      1.0
      2.0
      3.0
    }
  }
}
`

func TestConvertMeshCommandBasicRun(t *testing.T) {
	tempDir := t.TempDir()
	gridFile := filepath.Join(tempDir, "fixture.grd")
	dataFile := filepath.Join(tempDir, "fixture.dat")
	outputFile := filepath.Join(tempDir, "out.apf")

	if err := os.WriteFile(gridFile, []byte(singleTetGridFixture), 0644); err != nil {
		t.Fatalf("writing grid fixture: %v", err)
	}
	if err := os.WriteFile(dataFile, []byte(singleTetFieldFixture), 0644); err != nil {
		t.Fatalf("writing data fixture: %v", err)
	}

	appCfg := &config.AppConfig{
		Detector:    config.DefaultDetectorConfig(),
		Propagation: config.DefaultPropagationConfig(),
		MeshConvert: config.DefaultMeshConvertConfig(),
		Cli: config.CLIConfig{
			Mode: config.ModeConvertMesh,
			Seed: 1,
		},
	}
	appCfg.MeshConvert.GridFile = gridFile
	appCfg.MeshConvert.DataFile = dataFile
	appCfg.MeshConvert.OutputFile = outputFile
	appCfg.MeshConvert.Observable = "ElectrostaticPotential"
	appCfg.MeshConvert.NX, appCfg.MeshConvert.NY, appCfg.MeshConvert.NZ = 2, 2, 2
	appCfg.MeshConvert.XMinMM, appCfg.MeshConvert.YMinMM, appCfg.MeshConvert.ZMinMM = 0.1, 0.1, 0.1
	appCfg.MeshConvert.XMaxMM, appCfg.MeshConvert.YMaxMM, appCfg.MeshConvert.ZMaxMM = 0.2, 0.2, 0.2
	appCfg.MeshConvert.RadiusInitialMM = 0.5
	appCfg.MeshConvert.RadiusMaxMM = 4.0

	if err := appCfg.Validate(); err != nil {
		t.Fatalf("constructed AppConfig is invalid: %v", err)
	}

	orchestrator := cli.NewOrchestrator(appCfg)
	if err := orchestrator.Run(); err != nil {
		t.Fatalf("Orchestrator.Run() for convert-mesh mode failed: %v", err)
	}

	if _, err := os.Stat(outputFile); err != nil {
		t.Fatalf("expected output APF file to be created: %v", err)
	}
}
