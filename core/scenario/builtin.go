// Package scenario provides the built-in islanding scenarios and loads
// additional ones from YAML files.
package scenario

import "github.com/kilianp07/islandsim/core/model"

// Names of the built-in scenarios.
const (
	NoSupport         = "scenario_1_no_support"
	BESSOnly          = "scenario_2_bess_only"
	PVBESSSynergy     = "scenario_3_pv_bess_synergy"
	DistributedFaults = "scenario_4_distributed_faults"
)

// DefaultNames is the selection run when none is configured.
var DefaultNames = []string{BESSOnly, PVBESSSynergy, DistributedFaults}

var builtinDefs = []Definition{
	{
		Name:        NoSupport,
		Description: "Baseline case: fault without PV or BESS support.",
		PVShape:     "pvshape2",
		Events: map[int][]string{
			120: {"edit line.sw2 enabled=no"},
		},
	},
	{
		Name:        BESSOnly,
		Description: "Fault + island support using BESS only (PV disabled).",
		PVShape:     "pvshape2",
		BESSEnabled: true,
		Events: map[int][]string{
			120: {"edit line.sw2 enabled=no"},
			400: {"edit vsource.dummy_1 enabled=yes", "edit line.mbs_s1 enabled=yes"},
		},
	},
	{
		Name:        PVBESSSynergy,
		Description: "Synergistic PV+BESS islanded autonomy.",
		PVShape:     "pvshape1",
		PVEnabled:   true,
		BESSEnabled: true,
		Events: map[int][]string{
			120: {"edit line.sw2 enabled=no", "edit line.mbs_s2 enabled=no"},
			400: {"edit vsource.dummy_1 enabled=yes", "edit line.mbs_s1 enabled=yes"},
		},
	},
	{
		Name:        DistributedFaults,
		Description: "Adaptive resilience against distributed network faults (multi-event).",
		PVShape:     "pvshape1",
		PVEnabled:   true,
		BESSEnabled: true,
		Events: map[int][]string{
			120: {"edit line.sw2 enabled=no"},
			300: {"edit vsource.dummy_1 enabled=yes", "edit line.mbs_s1 enabled=yes"},
			700: {"edit line.mbs_s1 enabled=no", "edit vsource.dummy_1 enabled=no"},
			720: {"edit line.sw4 enabled=no"},
			920: {"edit vsource.dummy_1 enabled=yes", "edit line.mbs_s2 enabled=yes"},
		},
	},
}

// Builtins returns fresh copies of the built-in scenarios in declaration
// order.
func Builtins() []model.ScenarioConfig {
	out := make([]model.ScenarioConfig, 0, len(builtinDefs))
	for _, d := range builtinDefs {
		cfg, err := d.Config()
		if err != nil {
			panic("scenario: invalid built-in " + d.Name + ": " + err.Error())
		}
		out = append(out, cfg)
	}
	return out
}
