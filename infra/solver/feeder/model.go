package feeder

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BuiltinModel is the model path that selects the embedded residential
// microgrid.
const BuiltinModel = "builtin:microgrid"

//go:embed models/microgrid.yaml
var builtinMicrogrid []byte

// Model is the YAML description of a feeder.
type Model struct {
	Name        string               `yaml:"name"`
	BaseVoltage float64              `yaml:"base_voltage"`
	LoadShapes  map[string][]float64 `yaml:"loadshapes"`
	Buses       []string             `yaml:"buses"`
	Sources     []SourceDef          `yaml:"vsources"`
	Lines       []LineDef            `yaml:"lines"`
	Loads       []LoadDef            `yaml:"loads"`
	PVSystems   []PVDef              `yaml:"pvsystems"`
	Storages    []StorageDef         `yaml:"storages"`
}

// SourceDef is a voltage source fixing its bus voltage when enabled.
type SourceDef struct {
	Name    string  `yaml:"name"`
	Bus     string  `yaml:"bus"`
	PU      float64 `yaml:"pu"`
	Enabled bool    `yaml:"enabled"`
}

// LineDef is a resistive branch. Disabled lines are open switches.
type LineDef struct {
	Name    string  `yaml:"name"`
	From    string  `yaml:"from"`
	To      string  `yaml:"to"`
	ROhm    float64 `yaml:"r_ohm"`
	Enabled *bool   `yaml:"enabled"`
}

// LoadDef is a constant-power load following a daily shape.
type LoadDef struct {
	Name   string  `yaml:"name"`
	Bus    string  `yaml:"bus"`
	KW     float64 `yaml:"kw"`
	PF     float64 `yaml:"pf"`
	Daily  string  `yaml:"daily"`
	Phases int     `yaml:"phases"`
}

// PVDef is a PV array whose output follows a daily irradiance shape.
type PVDef struct {
	Name    string  `yaml:"name"`
	Bus     string  `yaml:"bus"`
	PmppKW  float64 `yaml:"pmpp"`
	Daily   string  `yaml:"daily"`
	Enabled bool    `yaml:"enabled"`
}

// StorageDef is a battery with an energy budget.
type StorageDef struct {
	Name       string  `yaml:"name"`
	Bus        string  `yaml:"bus"`
	KWRated    float64 `yaml:"kw_rated"`
	KWhRated   float64 `yaml:"kwh_rated"`
	StoredPct  float64 `yaml:"stored_pct"`
	ReservePct float64 `yaml:"reserve_pct"`
	Efficiency float64 `yaml:"efficiency"`
}

// LoadModel reads a model file, or the embedded model for BuiltinModel.
func LoadModel(path string) (*Model, error) {
	var data []byte
	if path == BuiltinModel {
		data = builtinMicrogrid
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.BaseVoltage <= 0 {
		m.BaseVoltage = 230
	}
	buses := make(map[string]bool, len(m.Buses))
	for _, b := range m.Buses {
		buses[strings.ToLower(b)] = true
	}
	check := func(kind, name, bus string) error {
		if !buses[strings.ToLower(bus)] {
			return fmt.Errorf("%s.%s references unknown bus %q", kind, name, bus)
		}
		return nil
	}
	shape := func(kind, name, s string) error {
		if s == "" {
			return nil
		}
		if _, ok := m.LoadShapes[s]; !ok {
			return fmt.Errorf("%s.%s references unknown loadshape %q", kind, name, s)
		}
		return nil
	}
	for _, s := range m.Sources {
		if err := check("vsource", s.Name, s.Bus); err != nil {
			return err
		}
	}
	for _, l := range m.Lines {
		if err := check("line", l.Name, l.From); err != nil {
			return err
		}
		if err := check("line", l.Name, l.To); err != nil {
			return err
		}
		if l.ROhm <= 0 {
			return fmt.Errorf("line.%s: r_ohm must be positive", l.Name)
		}
	}
	for _, l := range m.Loads {
		if err := check("load", l.Name, l.Bus); err != nil {
			return err
		}
		if err := shape("load", l.Name, l.Daily); err != nil {
			return err
		}
	}
	for _, p := range m.PVSystems {
		if err := check("pvsystem", p.Name, p.Bus); err != nil {
			return err
		}
		if err := shape("pvsystem", p.Name, p.Daily); err != nil {
			return err
		}
	}
	for _, s := range m.Storages {
		if err := check("storage", s.Name, s.Bus); err != nil {
			return err
		}
		if s.KWhRated <= 0 || s.KWRated <= 0 {
			return fmt.Errorf("storage.%s: ratings must be positive", s.Name)
		}
	}
	for name, pts := range m.LoadShapes {
		if len(pts) < 2 {
			return fmt.Errorf("loadshape %s needs at least two points", name)
		}
	}
	return nil
}
