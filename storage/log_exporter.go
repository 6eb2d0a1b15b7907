package storage

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ExportLogData connects to the diagnostics SQLite database at dbPath,
// reads tableName and writes it as CSV to outputPath (or stdout if
// empty). Valid tableNames are "Events", "PixelPulses" and "Anomalies".
func ExportLogData(dbPath, tableName, outputPath string) error {
	db, err := sql.Open("sqlite3", dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", dbPath, err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("storage: ping %s: %w", dbPath, err)
	}

	var out io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("storage: create %s: %w", outputPath, err)
		}
		defer file.Close()
		out = file
	}
	writer := csv.NewWriter(out)
	defer writer.Flush()

	switch tableName {
	case "Events":
		return exportTable(db, writer, "Events",
			[]string{"EventNumber", "DepositCount", "TotalInducedCharge"},
			"SELECT EventNumber, DepositCount, TotalInducedCharge FROM Events ORDER BY EventNumber")
	case "PixelPulses":
		return exportTable(db, writer, "PixelPulses",
			[]string{"PulseID", "EventNumber", "PixelX", "PixelY", "Integral"},
			"SELECT PulseID, EventNumber, PixelX, PixelY, Integral FROM PixelPulses ORDER BY PulseID")
	case "Anomalies":
		return exportTable(db, writer, "Anomalies",
			[]string{"AnomalyID", "EventNumber", "GroupIndex", "Kind", "Detail"},
			"SELECT AnomalyID, EventNumber, GroupIndex, Kind, Detail FROM Anomalies ORDER BY AnomalyID")
	default:
		return fmt.Errorf("storage: unsupported table %q, want one of Events, PixelPulses, Anomalies", tableName)
	}
}

// exportTable runs query and writes every row as CSV, the column count
// of query's SELECT list being exactly len(headers).
func exportTable(db *sql.DB, writer *csv.Writer, tableName string, headers []string, query string) error {
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("storage: write CSV headers for %s: %w", tableName, err)
	}

	rows, err := db.Query(query)
	if err != nil {
		return fmt.Errorf("storage: query %s: %w", tableName, err)
	}
	defer rows.Close()

	n := len(headers)
	for rows.Next() {
		raw := make([]sql.NullString, n)
		dest := make([]interface{}, n)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("storage: scan row from %s: %w", tableName, err)
		}
		record := make([]string, n)
		for i, v := range raw {
			if v.Valid {
				record[i] = v.String
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("storage: write CSV record for %s: %w", tableName, err)
		}
	}
	return rows.Err()
}
