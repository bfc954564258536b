// Package scenarios checks islanding scenarios end to end against the
// in-process feeder engine. Each YAML case names a catalog scenario or
// defines one inline, and states the island and stability minutes it must
// produce.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/islandsim/core/model"
	"github.com/kilianp07/islandsim/core/scenario"
)

type Expected struct {
	IslandMinutes int `yaml:"island_minutes"`
	StabilityMin  int `yaml:"stability_min"`
	StabilityMax  int `yaml:"stability_max"`
}

type Case struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	Scenario    string               `yaml:"scenario,omitempty"`
	Inline      *scenario.Definition `yaml:"inline,omitempty"`
	InitialSoC  float64              `yaml:"initial_soc,omitempty"`
	Expected    Expected             `yaml:"expected"`
}

func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if (c.Scenario == "") == (c.Inline == nil) {
		return nil, fmt.Errorf("%s: exactly one of scenario or inline is required", path)
	}
	if c.Expected.StabilityMax < c.Expected.StabilityMin {
		return nil, fmt.Errorf("%s: stability_max below stability_min", path)
	}
	return &c, nil
}

// Config resolves the scenario the case runs.
func (c *Case) Config() (model.ScenarioConfig, error) {
	if c.Inline != nil {
		return c.Inline.Config()
	}
	cfg, ok := scenario.NewCatalog().Get(c.Scenario)
	if !ok {
		return model.ScenarioConfig{}, fmt.Errorf("unknown scenario %q", c.Scenario)
	}
	return cfg, nil
}
