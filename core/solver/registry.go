package solver

import "github.com/kilianp07/islandsim/core/factory"

var engineRegistry = factory.NewRegistry[Engine]()

// RegisterEngine adds an engine factory identified by name.
func RegisterEngine(name string, f factory.Factory[Engine]) error {
	return engineRegistry.Register(name, f)
}

// NewEngine creates the engine described by cfg.
func NewEngine(cfg factory.ModuleConfig) (Engine, error) {
	return engineRegistry.Create(cfg)
}

// EngineTypes lists the registered engine types.
func EngineTypes() []string { return engineRegistry.Names() }
