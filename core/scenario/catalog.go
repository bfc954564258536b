package scenario

import (
	"fmt"

	"github.com/kilianp07/islandsim/core/model"
)

// Catalog indexes scenarios by name and keeps registration order.
type Catalog struct {
	byName map[string]model.ScenarioConfig
	order  []string
}

// NewCatalog returns a catalog holding the built-in scenarios.
func NewCatalog() *Catalog {
	c := &Catalog{byName: map[string]model.ScenarioConfig{}}
	for _, cfg := range Builtins() {
		_ = c.Add(cfg)
	}
	return c
}

// Add registers cfg. Names must be unique.
func (c *Catalog) Add(cfg model.ScenarioConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, ok := c.byName[cfg.Name]; ok {
		return fmt.Errorf("scenario %q already registered", cfg.Name)
	}
	c.byName[cfg.Name] = cfg
	c.order = append(c.order, cfg.Name)
	return nil
}

// LoadFiles adds every scenario of the given YAML files.
func (c *Catalog) LoadFiles(paths ...string) error {
	for _, p := range paths {
		cfgs, err := Load(p)
		if err != nil {
			return err
		}
		for _, cfg := range cfgs {
			if err := c.Add(cfg); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}
	}
	return nil
}

// Get returns the named scenario.
func (c *Catalog) Get(name string) (model.ScenarioConfig, bool) {
	cfg, ok := c.byName[name]
	return cfg, ok
}

// Names lists scenario names in registration order.
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

// Select resolves names in the given order. An empty selection returns
// DefaultNames.
func (c *Catalog) Select(names []string) ([]model.ScenarioConfig, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	out := make([]model.ScenarioConfig, 0, len(names))
	for _, n := range names {
		cfg, ok := c.byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (known: %v)", n, c.order)
		}
		out = append(out, cfg)
	}
	return out, nil
}
