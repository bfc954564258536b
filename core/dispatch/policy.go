package dispatch

import (
	"math"

	"github.com/kilianp07/islandsim/core/model"
)

// Inputs are the observations the rule is evaluated on.
type Inputs struct {
	Island bool
	PVKW   float64
	// SoC is the fresh reading, PrevSoC the value carried from the last minute.
	SoC     float64
	PrevSoC float64
}

// Decision is the storage command for one minute and the SoC it was based on.
type Decision struct {
	State model.StorageState
	KW    float64
	SoC   float64
}

// Policy is the stateless hysteretic dispatch rule.
type Policy struct {
	cfg Config
}

// NewPolicy returns a policy over cfg. Zero fields take their defaults.
func NewPolicy(cfg Config) Policy {
	cfg.SetDefaults()
	return Policy{cfg: cfg}
}

// Config returns the effective thresholds.
func (p Policy) Config() Config { return p.cfg }

// EffectiveSoC substitutes an invalid reading (<= 0) with prev, or with the
// default when prev is not positive either.
func (p Policy) EffectiveSoC(soc, prev float64) float64 {
	if soc > 0 {
		return soc
	}
	if prev > 0 {
		return prev
	}
	return p.cfg.DefaultSoC
}

// Decide evaluates the rule. Islanded, the battery discharges to cover the
// target load net of PV until SoC reaches the stop threshold. Grid-tied, it
// charges from PV surplus below the charge ceiling.
func (p Policy) Decide(in Inputs) Decision {
	soc := p.EffectiveSoC(in.SoC, in.PrevSoC)
	d := Decision{State: model.StateIdling, SoC: soc}
	if in.Island {
		if soc <= p.cfg.StopThreshold() {
			return d
		}
		d.State = model.StateDischarging
		d.KW = math.Max(0, p.cfg.TargetLoadKW-in.PVKW)
		return d
	}
	if soc >= p.cfg.SoCMaxCharge {
		return d
	}
	if in.PVKW > p.cfg.PVChargeMinKW {
		d.State = model.StateCharging
		d.KW = p.cfg.PVChargeKW
	}
	return d
}
