// Package storage persists propagation run diagnostics: per-event,
// per-pixel pulse integrals and any physics anomalies raised during
// transport (runaway multiplication, step-budget exhaustion, non-finite
// state), plus JSON/CSV export of the same data for offline analysis.
package storage

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"pixelmc/common"
	"pixelmc/propagator"
)

// DiagnosticsLogger records propagation results into a SQLite database,
// one row per pixel pulse and one row per anomaly, grouped by event.
type DiagnosticsLogger struct {
	db *sql.DB
}

// NewDiagnosticsLogger opens (recreating, if present) a SQLite database
// at dataSourceName and creates its schema.
func NewDiagnosticsLogger(dataSourceName string) (*DiagnosticsLogger, error) {
	_ = os.Remove(dataSourceName)

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite database %s: %w", dataSourceName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping sqlite database %s: %w", dataSourceName, err)
	}

	logger := &DiagnosticsLogger{db: db}
	if err := logger.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create tables: %w", err)
	}
	return logger, nil
}

func (l *DiagnosticsLogger) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS Events (
			EventNumber INTEGER PRIMARY KEY,
			DepositCount INTEGER NOT NULL,
			TotalInducedCharge REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS PixelPulses (
			PulseID INTEGER PRIMARY KEY AUTOINCREMENT,
			EventNumber INTEGER NOT NULL,
			PixelX INTEGER NOT NULL,
			PixelY INTEGER NOT NULL,
			Integral REAL NOT NULL,
			FOREIGN KEY (EventNumber) REFERENCES Events (EventNumber) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS Anomalies (
			AnomalyID INTEGER PRIMARY KEY AUTOINCREMENT,
			EventNumber INTEGER NOT NULL,
			GroupIndex INTEGER NOT NULL,
			Kind TEXT NOT NULL,
			Detail TEXT,
			FOREIGN KEY (EventNumber) REFERENCES Events (EventNumber) ON DELETE CASCADE
		);`,
	}
	for _, s := range stmts {
		if _, err := l.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// DBForTest returns the underlying database handle for test assertions.
func (l *DiagnosticsLogger) DBForTest() *sql.DB { return l.db }

// LogEvent records one event's propagated charges: per-pixel pulse
// integrals, and an anomaly row for any group that ended the run still
// in motion (step budget exhausted) or with a multiplication level at
// the configured cap.
func (l *DiagnosticsLogger) LogEvent(eventNumber int64, results []propagator.PropagatedCharge, maxMultiplicationLevel int) error {
	if l.db == nil {
		return fmt.Errorf("storage: logger not initialized")
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var totalCharge float64
	for _, r := range results {
		for _, px := range r.Pulses.Pixels() {
			p := r.Pulses.Get(px)
			if p == nil {
				continue
			}
			totalCharge += p.Integral()
		}
	}

	if _, err := tx.Exec(`INSERT INTO Events (EventNumber, DepositCount, TotalInducedCharge) VALUES (?, ?, ?)`,
		eventNumber, len(results), totalCharge); err != nil {
		return fmt.Errorf("storage: insert Events row: %w", err)
	}

	pulseStmt, err := tx.Prepare(`INSERT INTO PixelPulses (EventNumber, PixelX, PixelY, Integral) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare PixelPulses insert: %w", err)
	}
	defer pulseStmt.Close()

	anomalyStmt, err := tx.Prepare(`INSERT INTO Anomalies (EventNumber, GroupIndex, Kind, Detail) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare Anomalies insert: %w", err)
	}
	defer anomalyStmt.Close()

	for _, r := range results {
		for _, px := range r.Pulses.Pixels() {
			p := r.Pulses.Get(px)
			if p == nil {
				continue
			}
			if _, err := pulseStmt.Exec(eventNumber, px.X, px.Y, p.Integral()); err != nil {
				return fmt.Errorf("storage: insert pixel pulse for event %d: %w", eventNumber, err)
			}
		}
		for gi, g := range r.Groups {
			if g.State == common.Motion {
				if _, err := anomalyStmt.Exec(eventNumber, gi, "step_budget_exhausted",
					fmt.Sprintf("group still in motion after %d steps", g.Steps)); err != nil {
					return fmt.Errorf("storage: insert anomaly for event %d: %w", eventNumber, err)
				}
			}
			if maxMultiplicationLevel > 0 && g.MultiplicationLevel >= maxMultiplicationLevel {
				if _, err := anomalyStmt.Exec(eventNumber, gi, "multiplication_cap_reached",
					fmt.Sprintf("charge grew to %g carriers", g.Charge)); err != nil {
					return fmt.Errorf("storage: insert anomaly for event %d: %w", eventNumber, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (l *DiagnosticsLogger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
