package simulation

import (
	"fmt"
	"time"

	"github.com/kilianp07/islandsim/core/model"
)

// Network names the elements of the microgrid model the loop reads and
// drives.
type Network struct {
	ModelPath      string   `json:"model_path"`
	IslandSource   string   `json:"island_source"`
	PVElement      string   `json:"pv_element"`
	StorageElement string   `json:"storage_element"`
	SoCProperty    string   `json:"soc_property"`
	Homes          []string `json:"homes"`
	LoadPrefix     string   `json:"load_prefix"`
	Minutes        int      `json:"minutes"`
	InitialSoC     float64  `json:"initial_soc"`
	// StartDate anchors simulated minutes to wall-clock timestamps (YYYY-MM-DD, UTC).
	StartDate string `json:"start_date"`
}

// DefaultHomes are the ten monitored houses.
var DefaultHomes = []string{"home1", "home2", "home3", "home4", "home5", "home6", "home7", "home8", "home9", "home10"}

// SetDefaults fills zero values with the reference feeder layout.
func (n *Network) SetDefaults() {
	if n.ModelPath == "" {
		n.ModelPath = "master.dss"
	}
	if n.IslandSource == "" {
		n.IslandSource = "vsource.dummy_1"
	}
	if n.PVElement == "" {
		n.PVElement = "pvsystem.pv1"
	}
	if n.StorageElement == "" {
		n.StorageElement = "storage.mobilebat"
	}
	if n.SoCProperty == "" {
		n.SoCProperty = "%stored"
	}
	if len(n.Homes) == 0 {
		n.Homes = append([]string(nil), DefaultHomes...)
	}
	if n.LoadPrefix == "" {
		n.LoadPrefix = "load."
	}
	if n.Minutes == 0 {
		n.Minutes = 1440
	}
	if n.InitialSoC == 0 {
		n.InitialSoC = 40
	}
	if n.StartDate == "" {
		n.StartDate = "2024-01-01"
	}
}

// Validate checks element names and bounds.
func (n Network) Validate() error {
	for _, e := range []string{n.IslandSource, n.PVElement, n.StorageElement} {
		if err := model.ValidateElement(e); err != nil {
			return fmt.Errorf("network: %w", err)
		}
	}
	if n.Minutes <= 0 {
		return fmt.Errorf("network.minutes must be positive")
	}
	if n.InitialSoC < 0 || n.InitialSoC > 100 {
		return fmt.Errorf("network.initial_soc must be within [0,100]")
	}
	seen := make(map[string]bool, len(n.Homes))
	for _, h := range n.Homes {
		if h == "" || seen[h] {
			return fmt.Errorf("network.homes: empty or duplicate entry %q", h)
		}
		seen[h] = true
	}
	if _, err := n.Start(); err != nil {
		return fmt.Errorf("network.start_date: %w", err)
	}
	return nil
}

// LoadElements returns the load element of every home.
func (n Network) LoadElements() []string {
	out := make([]string, len(n.Homes))
	for i, h := range n.Homes {
		out[i] = n.LoadPrefix + h
	}
	return out
}

// Start returns midnight UTC of StartDate.
func (n Network) Start() (time.Time, error) {
	if n.StartDate == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, n.StartDate)
}
