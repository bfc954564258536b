package config

import "fmt"

// OutputConfig controls the artefacts written after each run.
type OutputConfig struct {
	ResultsDir string `json:"results_dir"`
	// Plots enables the HTML charts; nil means enabled.
	Plots *bool `json:"plots"`
	// CSV writes one minute-by-minute CSV per scenario.
	CSV bool `json:"csv"`
}

func (c *OutputConfig) SetDefaults() {
	if c.ResultsDir == "" {
		c.ResultsDir = "results"
	}
}

func (c OutputConfig) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("output: results_dir is required")
	}
	return nil
}

// PlotsEnabled reports whether charts are written.
func (c OutputConfig) PlotsEnabled() bool { return c.Plots == nil || *c.Plots }

// ScenariosConfig selects what runs.
type ScenariosConfig struct {
	// Files are YAML scenario documents added to the built-in catalog.
	Files []string `json:"files"`
	// Names selects scenarios by name; empty runs the default selection.
	Names []string `json:"names"`
}
