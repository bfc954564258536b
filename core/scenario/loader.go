package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/islandsim/core/model"
)

// Definition is the serialised form of a scenario.
type Definition struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	PVShape     string           `yaml:"pv_shape" json:"pv_shape"`
	PVEnabled   bool             `yaml:"pv_enabled" json:"pv_enabled"`
	BESSEnabled bool             `yaml:"bess_enabled" json:"bess_enabled"`
	Events      map[int][]string `yaml:"events,omitempty" json:"events,omitempty"`
}

// Config converts the definition into a validated ScenarioConfig.
func (d Definition) Config() (model.ScenarioConfig, error) {
	sched, err := model.ScheduleFromStrings(d.Events)
	if err != nil {
		return model.ScenarioConfig{}, fmt.Errorf("scenario %s: %w", d.Name, err)
	}
	cfg := model.ScenarioConfig{
		Name:        d.Name,
		Description: d.Description,
		PVShape:     d.PVShape,
		PVEnabled:   d.PVEnabled,
		BESSEnabled: d.BESSEnabled,
		Events:      sched,
	}
	if err := cfg.Validate(); err != nil {
		return model.ScenarioConfig{}, err
	}
	return cfg, nil
}

// DefinitionOf is the inverse of Definition.Config.
func DefinitionOf(cfg model.ScenarioConfig) Definition {
	return Definition{
		Name:        cfg.Name,
		Description: cfg.Description,
		PVShape:     cfg.PVShape,
		PVEnabled:   cfg.PVEnabled,
		BESSEnabled: cfg.BESSEnabled,
		Events:      cfg.Events.Strings(),
	}
}

type file struct {
	Scenarios []Definition `yaml:"scenarios"`
}

// Parse decodes a YAML document holding a "scenarios" list.
func Parse(data []byte) ([]model.ScenarioConfig, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	out := make([]model.ScenarioConfig, 0, len(f.Scenarios))
	seen := make(map[string]bool, len(f.Scenarios))
	for _, d := range f.Scenarios {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate scenario %q", d.Name)
		}
		seen[d.Name] = true
		cfg, err := d.Config()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Load reads scenarios from a YAML file.
func Load(path string) ([]model.ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
