package feeder

import (
	"math"
	"time"

	"github.com/kilianp07/islandsim/core/model"
)

// energyEpsilon is the kWh below which a battery counts as at its limit.
const energyEpsilon = 1e-9

// battery integrates stored energy for a storage element. Output is
// positive when discharging.
type battery struct {
	kwRated    float64
	kwhRated   float64
	storedKWh  float64
	reservePct float64
	efficiency float64

	state    model.StorageState
	kwTarget float64
	// output is the power exchanged during the last step.
	output float64
}

func newBattery(d StorageDef) *battery {
	eff := d.Efficiency
	if eff <= 0 || eff > 1 {
		eff = 1
	}
	return &battery{
		kwRated:    d.KWRated,
		kwhRated:   d.KWhRated,
		storedKWh:  clamp(d.StoredPct, 0, 100) / 100 * d.KWhRated,
		reservePct: d.ReservePct,
		efficiency: eff,
	}
}

func (b *battery) storedPct() float64 { return b.storedKWh / b.kwhRated * 100 }

// step applies the current state for dt. Discharge stops at the reserve and
// charge at full capacity. An unenergised battery exchanges nothing.
func (b *battery) step(dt time.Duration, energised bool) {
	b.output = 0
	hours := dt.Hours()
	if hours <= 0 || !energised {
		return
	}
	p := math.Min(math.Abs(b.kwTarget), b.kwRated)
	switch b.state {
	case model.StateDischarging:
		avail := b.storedKWh - b.reservePct/100*b.kwhRated
		if avail <= energyEpsilon {
			return
		}
		drawn := p * hours / b.efficiency
		if drawn > avail {
			drawn = avail
			p = drawn * b.efficiency / hours
		}
		b.storedKWh -= drawn
		b.output = p
	case model.StateCharging:
		room := b.kwhRated - b.storedKWh
		if room <= energyEpsilon {
			return
		}
		stored := p * hours * b.efficiency
		if stored > room {
			stored = room
			p = stored / b.efficiency / hours
		}
		b.storedKWh += stored
		b.output = -p
	}
	b.storedKWh = clamp(b.storedKWh, 0, b.kwhRated)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
