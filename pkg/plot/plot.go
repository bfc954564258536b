// Package plot renders scenario results as standalone HTML charts.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/islandsim/core/model"
)

// NominalVoltage is the reference line drawn on voltage charts.
const NominalVoltage = 230.0

// PowerFlow charts PV, battery, demand and local supply over the day.
func PowerFlow(name string, res *model.ScenarioResults) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: name + " power flow"}),
		charts.WithTitleOpts(opts.Title{Title: "Power flow", Subtitle: name}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kW"}),
	)
	line.SetXAxis(timeAxis(res.Len())).
		AddSeries("PV", lineData(res.PVKW)).
		AddSeries("BESS", lineData(res.BatteryKW)).
		AddSeries("Demand", lineData(res.LoadKW)).
		AddSeries("Supply", lineData(res.SupplyKW))
	return line
}

// VoltageBandSoC stacks the voltage band of the monitored points, with its
// mean and the nominal reference, above the battery state of charge.
func VoltageBandSoC(name string, res *model.ScenarioResults) *components.Page {
	lo, hi, mean := res.VoltageBand()
	x := timeAxis(res.Len())

	volts := charts.NewLine()
	volts.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Voltage band", Subtitle: name}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "V"}),
	)
	ref := make([]float64, res.Len())
	for i := range ref {
		ref[i] = NominalVoltage
	}
	volts.SetXAxis(x).
		AddSeries("Min", lineData(lo)).
		AddSeries("Max", lineData(hi)).
		AddSeries("Mean", lineData(mean)).
		AddSeries(fmt.Sprintf("%.0f V", NominalVoltage), lineData(ref))

	soc := charts.NewLine()
	soc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "State of charge"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)
	soc.SetXAxis(x).AddSeries("SoC", lineData(res.SoCPct))

	page := components.NewPage()
	page.PageTitle = name + " voltage band and SoC"
	page.AddCharts(volts, soc)
	return page
}

// SavePowerFlow writes <dir>/<name>_powerflow.html.
func SavePowerFlow(dir, name string, res *model.ScenarioResults) (string, error) {
	path := filepath.Join(dir, name+"_powerflow.html")
	return path, render(path, PowerFlow(name, res))
}

// SaveVoltageBandSoC writes <dir>/<name>_voltage_band_soc.html.
func SaveVoltageBandSoC(dir, name string, res *model.ScenarioResults) (string, error) {
	path := filepath.Join(dir, name+"_voltage_band_soc.html")
	return path, render(path, VoltageBandSoC(name, res))
}

// SaveAll writes both charts of a scenario and returns their paths.
func SaveAll(dir, name string, res *model.ScenarioResults) ([]string, error) {
	var paths []string
	for _, save := range []func(string, string, *model.ScenarioResults) (string, error){SavePowerFlow, SaveVoltageBandSoC} {
		p, err := save(dir, name, res)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

type renderer interface {
	Render(w io.Writer) error
}

func render(path string, r renderer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func timeAxis(n int) []string {
	x := make([]string, n)
	for i := range x {
		x[i] = fmt.Sprintf("%02d:%02d", (i/60)%24, i%60)
	}
	return x
}

func lineData(v []float64) []opts.LineData {
	out := make([]opts.LineData, len(v))
	for i, f := range v {
		out[i] = opts.LineData{Value: f}
	}
	return out
}
