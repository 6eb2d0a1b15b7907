package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"pixelmc/propagator"
)

// PixelSummary is one pixel's accumulated induced charge across an
// entire propagation run.
type PixelSummary struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Integral float64 `json:"integral"`
}

// RunSummary is the JSON-serializable result of a propagation run:
// per-pixel totals and basic counters, suitable for quick inspection
// without opening the SQLite diagnostics database.
type RunSummary struct {
	EventCount  int            `json:"event_count"`
	DepositCount int           `json:"deposit_count"`
	Pixels      []PixelSummary `json:"pixels"`
}

// SummarizeRun folds a batch of per-event propagation results into a
// RunSummary, merging pulse integrals across every event.
func SummarizeRun(results [][]propagator.PropagatedCharge) RunSummary {
	totals := make(map[[2]int]float64)
	depositCount := 0
	for _, event := range results {
		depositCount += len(event)
		for _, pc := range event {
			for _, px := range pc.Pulses.Pixels() {
				p := pc.Pulses.Get(px)
				if p == nil {
					continue
				}
				totals[[2]int{px.X, px.Y}] += p.Integral()
			}
		}
	}
	summary := RunSummary{EventCount: len(results), DepositCount: depositCount}
	for xy, total := range totals {
		summary.Pixels = append(summary.Pixels, PixelSummary{X: xy[0], Y: xy[1], Integral: total})
	}
	return summary
}

// SaveRunSummaryJSON serializes a RunSummary to filePath as indented JSON.
func SaveRunSummaryJSON(summary RunSummary, filePath string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal run summary: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("storage: write run summary to %s: %w", filePath, err)
	}
	return nil
}

// LoadRunSummaryJSON deserializes a RunSummary previously written by
// SaveRunSummaryJSON.
func LoadRunSummaryJSON(filePath string) (RunSummary, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return RunSummary{}, fmt.Errorf("storage: read run summary from %s: %w", filePath, err)
	}
	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return RunSummary{}, fmt.Errorf("storage: unmarshal run summary from %s: %w", filePath, err)
	}
	return summary, nil
}
