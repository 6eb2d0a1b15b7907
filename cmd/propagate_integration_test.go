package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"pixelmc/cli"
	"pixelmc/config"
)

// newTestPropagateAppConfig builds a minimal AppConfig for a synthetic
// propagate run, keeping carrier counts small so the test runs fast.
func newTestPropagateAppConfig(numDeposits int, dbPath string) *config.AppConfig {
	return &config.AppConfig{
		Detector:    config.DefaultDetectorConfig(),
		Propagation: config.DefaultPropagationConfig(),
		MeshConvert: config.DefaultMeshConvertConfig(),
		Cli: config.CLIConfig{
			Mode:        config.ModePropagate,
			Seed:        1,
			NumDeposits: numDeposits,
			DbPath:      dbPath,
		},
	}
}

func TestPropagateCommandBasicRun(t *testing.T) {
	appCfg := newTestPropagateAppConfig(5, "")
	if err := appCfg.Validate(); err != nil {
		t.Fatalf("constructed AppConfig is invalid: %v", err)
	}

	orchestrator := cli.NewOrchestrator(appCfg)
	if err := orchestrator.Run(); err != nil {
		t.Fatalf("Orchestrator.Run() for propagate mode failed: %v", err)
	}
}

func TestPropagateCommandSQLiteLogging(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test_propagate_log.db")

	appCfg := newTestPropagateAppConfig(4, dbPath)
	if err := appCfg.Validate(); err != nil {
		t.Fatalf("constructed AppConfig is invalid: %v", err)
	}

	orchestrator := cli.NewOrchestrator(appCfg)
	if err := orchestrator.Run(); err != nil {
		t.Fatalf("Orchestrator.Run() for propagate mode with SQLite logging failed: %v", err)
	}

	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("expected diagnostics DB file to be created: %v", err)
	}
	if fileInfo.Size() == 0 {
		t.Errorf("expected diagnostics DB file to be non-empty")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open diagnostics DB: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"Events", "PixelPulses"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", table).Scan(&name)
		if err == sql.ErrNoRows {
			t.Errorf("expected table %q to exist", table)
			continue
		}
		if err != nil {
			t.Errorf("querying for table %q: %v", table, err)
			continue
		}

		var rowCount int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s;", table)).Scan(&rowCount); err != nil {
			t.Errorf("counting rows in %q: %v", table, err)
		} else if rowCount == 0 {
			t.Errorf("expected table %q to have rows, found 0", table)
		}
	}
}
