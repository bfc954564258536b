// Package solver defines the boundary with the external circuit-solving
// engine. Engine is the raw adapter; Session owns one engine exclusively and
// layers the normalisation and fallback rules on top of its reads.
package solver

import (
	"fmt"
	"time"
)

// ModeSpec selects the engine's time-stepping mode.
type ModeSpec struct {
	Mode     string        `json:"mode"`
	StepSize time.Duration `json:"step_size"`
	Number   int           `json:"number"`
}

// DailyMinuteMode advances one minute per solve over a daily profile.
var DailyMinuteMode = ModeSpec{Mode: "daily", StepSize: time.Minute, Number: 1}

// Text renders the mode in the engine grammar, e.g.
// "set mode=daily stepsize=1m number=1".
func (m ModeSpec) Text() string {
	return fmt.Sprintf("set mode=%s stepsize=%s number=%d", m.Mode, formatStep(m.StepSize), m.Number)
}

func formatStep(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}

// Engine is the adapter to an external circuit engine. The engine keeps an
// active element and an active bus; the read methods refer to whichever was
// selected last.
type Engine interface {
	// Clear drops the loaded model and every mutation applied to it.
	Clear() error
	Compile(modelPath string) error
	SetMode(mode ModeSpec) error
	// Issue applies one command in the engine's native grammar.
	Issue(cmd string) error
	// SolveStep advances one time step. An error is fatal for the run.
	SolveStep() error

	SelectElement(name string) bool
	IsEnabled() bool
	ReadPowers() []float64
	ReadProperty(name string) (string, error)

	SelectBus(name string) bool
	ReadVoltageMagnitude() float64
}

// Closer is implemented by engines holding connections.
type Closer interface {
	Close() error
}
