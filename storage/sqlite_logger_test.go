package storage_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"pixelmc/common"
	"pixelmc/propagator"
	"pixelmc/pulse"
	"pixelmc/storage"
)

func tableHasColumns(db *sql.DB, tableName string, expectedCols []string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + tableName + ");")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var cid, notnull, pk int
		var name, typeStr string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typeStr, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	for _, col := range expectedCols {
		if !found[col] {
			return false, nil
		}
	}
	return true, nil
}

func TestNewDiagnosticsLoggerCreatesSchema(t *testing.T) {
	logger, err := storage.NewDiagnosticsLogger(":memory:")
	if err != nil {
		t.Fatalf("NewDiagnosticsLogger: %v", err)
	}
	defer logger.Close()

	for table, cols := range map[string][]string{
		"Events":      {"EventNumber", "DepositCount", "TotalInducedCharge"},
		"PixelPulses": {"PulseID", "EventNumber", "PixelX", "PixelY", "Integral"},
		"Anomalies":   {"AnomalyID", "EventNumber", "GroupIndex", "Kind", "Detail"},
	} {
		ok, err := tableHasColumns(logger.DBForTest(), table, cols)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if !ok {
			t.Errorf("table %s missing expected columns %v", table, cols)
		}
	}
}

func samplePropagated(t *testing.T, px common.PixelIndex, integral float64, state common.TerminalState) propagator.PropagatedCharge {
	t.Helper()
	pm := pulse.NewPixelMap(1.0)
	if err := pm.AddCharge(px, integral, 0); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	return propagator.PropagatedCharge{
		Pulses: pm,
	}
}

func TestLogEventInsertsEventAndPulseRows(t *testing.T) {
	logger, err := storage.NewDiagnosticsLogger(":memory:")
	if err != nil {
		t.Fatalf("NewDiagnosticsLogger: %v", err)
	}
	defer logger.Close()

	result := samplePropagated(t, common.PixelIndex{X: 2, Y: 3}, 0.42, common.Halted)
	if err := logger.LogEvent(7, []propagator.PropagatedCharge{result}, 10); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var depositCount int
	var total float64
	if err := logger.DBForTest().QueryRow(
		"SELECT DepositCount, TotalInducedCharge FROM Events WHERE EventNumber = 7").Scan(&depositCount, &total); err != nil {
		t.Fatalf("query Events: %v", err)
	}
	if depositCount != 1 {
		t.Errorf("DepositCount = %d, want 1", depositCount)
	}
	if total != 0.42 {
		t.Errorf("TotalInducedCharge = %v, want 0.42", total)
	}

	var px, py int
	var integral float64
	if err := logger.DBForTest().QueryRow(
		"SELECT PixelX, PixelY, Integral FROM PixelPulses WHERE EventNumber = 7").Scan(&px, &py, &integral); err != nil {
		t.Fatalf("query PixelPulses: %v", err)
	}
	if px != 2 || py != 3 {
		t.Errorf("pixel = (%d,%d), want (2,3)", px, py)
	}
}

func TestDiagnosticsLoggerClose(t *testing.T) {
	logger, err := storage.NewDiagnosticsLogger(":memory:")
	if err != nil {
		t.Fatalf("NewDiagnosticsLogger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("repeated Close: %v", err)
	}

	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "diagnostics.db")
	fileLogger, err := storage.NewDiagnosticsLogger(dbPath)
	if err != nil {
		t.Fatalf("NewDiagnosticsLogger(file): %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file to be created: %v", err)
	}
	if err := fileLogger.Close(); err != nil {
		t.Errorf("Close(file): %v", err)
	}
}
