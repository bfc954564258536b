// Package export writes run artefacts: the summary record as JSON and the
// per-minute series of a scenario as CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kilianp07/islandsim/core/model"
)

// SummaryFile is the name of the aggregate record in the results directory.
const SummaryFile = "summary.json"

// WriteSummaryJSON writes rec to w as a JSON object keyed by scenario name,
// indented by two spaces.
func WriteSummaryJSON(w io.Writer, rec model.SummaryRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// SaveSummary writes rec to <dir>/summary.json, creating dir if needed.
func SaveSummary(dir string, rec model.SummaryRecord) (string, error) {
	path := filepath.Join(dir, SummaryFile)
	return path, writeFile(path, func(w io.Writer) error { return WriteSummaryJSON(w, rec) })
}

// ReadSummary loads a record written by SaveSummary. Names are restored
// from the keys.
func ReadSummary(path string) (model.SummaryRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec := model.SummaryRecord{}
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for name, s := range rec {
		s.Name = name
		rec[name] = s
	}
	return rec, nil
}

// WriteCSV writes one row per minute: the scalar channels followed by one
// voltage column per monitored point.
func WriteCSV(w io.Writer, res *model.ScenarioResults) error {
	cw := csv.NewWriter(w)
	header := []string{"minute", "island", "pv_kw", "bat_kw", "soc_pct", "load_kw", "supply_kw"}
	for _, p := range res.Points {
		header = append(header, "v_"+p)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for t := 0; t < res.Len(); t++ {
		row := []string{
			strconv.Itoa(t),
			strconv.Itoa(res.IslandFlag[t]),
			formatFloat(res.PVKW[t]),
			formatFloat(res.BatteryKW[t]),
			formatFloat(res.SoCPct[t]),
			formatFloat(res.LoadKW[t]),
			formatFloat(res.SupplyKW[t]),
		}
		for _, p := range res.Points {
			row = append(row, formatFloat(res.Voltages[p][t]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the series of scenario name to <dir>/<name>_timeseries.csv.
func SaveCSV(dir, name string, res *model.ScenarioResults) (string, error) {
	path := filepath.Join(dir, name+"_timeseries.csv")
	return path, writeFile(path, func(w io.Writer) error { return WriteCSV(w, res) })
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
