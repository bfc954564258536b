// Package plugins links the built-in solver engines and metrics sinks into
// the binary and lists what is available.
package plugins

import (
	coremetrics "github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/core/solver"

	// Registration side effects.
	_ "github.com/kilianp07/islandsim/infra/metrics"
	_ "github.com/kilianp07/islandsim/infra/solver/feeder"
	_ "github.com/kilianp07/islandsim/infra/solver/mqttengine"
	_ "github.com/kilianp07/islandsim/infra/telemetry"
)

// Available lists registered plugin names per kind.
func Available() map[string][]string {
	return map[string][]string{
		"solver":  solver.EngineTypes(),
		"metrics": coremetrics.SinkTypes(),
	}
}
