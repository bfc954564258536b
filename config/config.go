package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/islandsim/core/dispatch"
	"github.com/kilianp07/islandsim/core/factory"
	"github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/core/simulation"
)

// DefaultSolverModel selects the embedded residential microgrid of the
// feeder engine.
const DefaultSolverModel = "builtin:microgrid"

type Config struct {
	Network         simulation.Network   `json:"network"`
	Dispatch        dispatch.Config      `json:"dispatch"`
	Solver          factory.ModuleConfig `json:"solver"`
	Metrics         metrics.Config       `json:"metrics"`
	Store           StoreConfig          `json:"store"`
	Output          OutputConfig         `json:"output"`
	Scenarios       ScenariosConfig      `json:"scenarios"`
	Sentry          SentryConfig         `json:"sentry"`
	ContinueOnError bool                 `json:"continue_on_error"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides: K_STORE__BACKEND sets store.backend.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Network.SetDefaults()
	c.Dispatch.SetDefaults()
	if c.Solver.Type == "" {
		c.Solver.Type = "feeder"
		if c.Solver.Conf == nil {
			c.Solver.Conf = map[string]any{"model": DefaultSolverModel}
		}
	}
	c.Store.SetDefaults()
	c.Output.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if c.Solver.Type == "" {
		return fmt.Errorf("solver: type is required")
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		return fmt.Errorf("sentry: traces_sample_rate must be within [0,1]")
	}
	return nil
}
