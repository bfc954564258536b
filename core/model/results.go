package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MinuteSample holds every channel read during one simulated minute.
// Voltages is aligned with ScenarioResults.Points.
type MinuteSample struct {
	Minute     int
	Island     bool
	PVKW       float64
	BatteryKW  float64
	SoCPct     float64
	LoadKW     float64
	Voltages   []float64
	State      StorageState
	SetpointKW float64
}

// SupplyKW is the non-negative local supply for the minute.
func (s MinuteSample) SupplyKW() float64 {
	return math.Max(0, s.PVKW+s.BatteryKW)
}

// IsStable reports whether a minute counts toward stability: the island is
// active and the state of charge is strictly above threshold.
func IsStable(island bool, socPct, threshold float64) bool {
	return island && socPct > threshold
}

// ScenarioResults accumulates the time series of one scenario run. Index i of
// every series refers to the same simulated minute.
type ScenarioResults struct {
	Minutes          int                  `json:"minutes"`
	Points           []string             `json:"points"`
	PVKW             []float64            `json:"pv_kw"`
	BatteryKW        []float64            `json:"bat_kw"`
	SoCPct           []float64            `json:"soc_pct"`
	LoadKW           []float64            `json:"load_kw"`
	SupplyKW         []float64            `json:"supply_kw"`
	IslandFlag       []int                `json:"island_flag"`
	Voltages         map[string][]float64 `json:"voltages"`
	StabilityMinutes int                  `json:"stability_minutes"`

	stabilityThreshold float64
}

// NewScenarioResults allocates an empty accumulator for minutes samples over
// the monitored points.
func NewScenarioResults(minutes int, points []string, stabilityThreshold float64) *ScenarioResults {
	r := &ScenarioResults{
		Minutes:            minutes,
		Points:             append([]string(nil), points...),
		PVKW:               make([]float64, 0, minutes),
		BatteryKW:          make([]float64, 0, minutes),
		SoCPct:             make([]float64, 0, minutes),
		LoadKW:             make([]float64, 0, minutes),
		SupplyKW:           make([]float64, 0, minutes),
		IslandFlag:         make([]int, 0, minutes),
		Voltages:           make(map[string][]float64, len(points)),
		stabilityThreshold: stabilityThreshold,
	}
	for _, p := range points {
		r.Voltages[p] = make([]float64, 0, minutes)
	}
	return r
}

// Len is the number of minutes recorded so far.
func (r *ScenarioResults) Len() int { return len(r.PVKW) }

// Append records one minute. Samples must arrive in minute order.
func (r *ScenarioResults) Append(s MinuteSample) error {
	if s.Minute != r.Len() {
		return fmt.Errorf("sample for minute %d out of order, expected %d", s.Minute, r.Len())
	}
	if r.Len() >= r.Minutes {
		return fmt.Errorf("results already hold %d minutes", r.Minutes)
	}
	if len(s.Voltages) != len(r.Points) {
		return fmt.Errorf("minute %d: %d voltages for %d points", s.Minute, len(s.Voltages), len(r.Points))
	}
	island := 0
	if s.Island {
		island = 1
	}
	r.IslandFlag = append(r.IslandFlag, island)
	r.PVKW = append(r.PVKW, s.PVKW)
	r.SoCPct = append(r.SoCPct, s.SoCPct)
	r.BatteryKW = append(r.BatteryKW, s.BatteryKW)
	if IsStable(s.Island, s.SoCPct, r.stabilityThreshold) {
		r.StabilityMinutes++
	}
	for i, p := range r.Points {
		r.Voltages[p] = append(r.Voltages[p], s.Voltages[i])
	}
	r.LoadKW = append(r.LoadKW, s.LoadKW)
	r.SupplyKW = append(r.SupplyKW, s.SupplyKW())
	return nil
}

// Complete verifies every series holds exactly Minutes entries.
func (r *ScenarioResults) Complete() error {
	series := map[string]int{
		"pv_kw":       len(r.PVKW),
		"bat_kw":      len(r.BatteryKW),
		"soc_pct":     len(r.SoCPct),
		"load_kw":     len(r.LoadKW),
		"supply_kw":   len(r.SupplyKW),
		"island_flag": len(r.IslandFlag),
	}
	for p, v := range r.Voltages {
		series["voltage "+p] = len(v)
	}
	for name, n := range series {
		if n != r.Minutes {
			return fmt.Errorf("series %s has %d entries, want %d", name, n, r.Minutes)
		}
	}
	return nil
}

// IslandMinutes counts the minutes spent islanded.
func (r *ScenarioResults) IslandMinutes() int {
	n := 0
	for _, f := range r.IslandFlag {
		n += f
	}
	return n
}

// Sample rebuilds the recorded sample for minute t.
func (r *ScenarioResults) Sample(t int) MinuteSample {
	volts := make([]float64, len(r.Points))
	for i, p := range r.Points {
		volts[i] = r.Voltages[p][t]
	}
	return MinuteSample{
		Minute:    t,
		Island:    r.IslandFlag[t] == 1,
		PVKW:      r.PVKW[t],
		BatteryKW: r.BatteryKW[t],
		SoCPct:    r.SoCPct[t],
		LoadKW:    r.LoadKW[t],
		Voltages:  volts,
	}
}

// VoltageBand returns, per recorded minute, the minimum, maximum and mean
// voltage across all monitored points.
func (r *ScenarioResults) VoltageBand() (lo, hi, mean []float64) {
	if len(r.Points) == 0 {
		return nil, nil, nil
	}
	n := r.Len()
	lo = make([]float64, n)
	hi = make([]float64, n)
	mean = make([]float64, n)
	col := make([]float64, len(r.Points))
	for t := 0; t < n; t++ {
		for i, p := range r.Points {
			col[i] = r.Voltages[p][t]
		}
		lo[t] = floats.Min(col)
		hi[t] = floats.Max(col)
		mean[t] = stat.Mean(col, nil)
	}
	return lo, hi, mean
}

// Summary is the per-scenario record handed to persistence. Name is the key
// of the aggregate record and is not repeated inside it.
type Summary struct {
	Name             string `json:"-"`
	Description      string `json:"description"`
	PVShape          string `json:"pv_shape"`
	PVEnabled        bool   `json:"pv_enabled"`
	BESSEnabled      bool   `json:"bess_enabled"`
	StabilityMinutes int    `json:"stability_minutes"`
}

// NewSummary builds the summary of a completed run.
func NewSummary(cfg ScenarioConfig, res *ScenarioResults) Summary {
	return Summary{
		Name:             cfg.Name,
		Description:      cfg.Description,
		PVShape:          cfg.PVShape,
		PVEnabled:        cfg.PVEnabled,
		BESSEnabled:      cfg.BESSEnabled,
		StabilityMinutes: res.StabilityMinutes,
	}
}

// SummaryRecord is the aggregate written once per top-level run, keyed by
// scenario name.
type SummaryRecord map[string]Summary

// Add stores s under its name.
func (r SummaryRecord) Add(s Summary) { r[s.Name] = s }
