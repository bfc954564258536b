package dispatch

import "fmt"

// Config holds the thresholds of the battery dispatch rule.
type Config struct {
	ReservePct    float64 `json:"reserve_pct"`
	SoCHyst       float64 `json:"soc_hyst"`
	TargetLoadKW  float64 `json:"target_load_kw"`
	PVChargeKW    float64 `json:"pv_charge_kw"`
	PVChargeMinKW float64 `json:"pv_charge_min_kw"`
	SoCMaxCharge  float64 `json:"soc_max_charge"`
	// DefaultSoC replaces an invalid reading when no previous SoC is known.
	DefaultSoC float64 `json:"default_soc"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.ReservePct == 0 {
		c.ReservePct = 20
	}
	if c.SoCHyst == 0 {
		c.SoCHyst = 0.5
	}
	if c.TargetLoadKW == 0 {
		c.TargetLoadKW = 15
	}
	if c.PVChargeKW == 0 {
		c.PVChargeKW = 10
	}
	if c.PVChargeMinKW == 0 {
		c.PVChargeMinKW = 2
	}
	if c.SoCMaxCharge == 0 {
		c.SoCMaxCharge = 95
	}
	if c.DefaultSoC == 0 {
		c.DefaultSoC = 40
	}
}

// Validate checks that thresholds are ordered and within [0,100].
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"reserve_pct":    c.ReservePct,
		"soc_max_charge": c.SoCMaxCharge,
		"default_soc":    c.DefaultSoC,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("dispatch.%s must be within [0,100], got %v", name, v)
		}
	}
	if c.SoCHyst < 0 {
		return fmt.Errorf("dispatch.soc_hyst must be non-negative")
	}
	if c.StopThreshold() >= c.SoCMaxCharge {
		return fmt.Errorf("dispatch: reserve plus hysteresis (%v) must be below soc_max_charge (%v)", c.StopThreshold(), c.SoCMaxCharge)
	}
	if c.TargetLoadKW < 0 || c.PVChargeKW < 0 || c.PVChargeMinKW < 0 {
		return fmt.Errorf("dispatch: power settings must be non-negative")
	}
	return nil
}

// StopThreshold is the SoC at or below which islanded discharge stops. It is
// also the stability threshold.
func (c Config) StopThreshold() float64 { return c.ReservePct + c.SoCHyst }
