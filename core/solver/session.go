package solver

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/islandsim/core/logger"
	"github.com/kilianp07/islandsim/core/model"
)

// BatteryTelemetry is one read of the storage element. SoCPct is 0 when the
// element or its stored-energy property cannot be read.
type BatteryTelemetry struct {
	SoCPct float64
	KW     float64
}

// Session owns an Engine for the duration of a run. It is not safe for
// concurrent use; scenarios sharing a session must run one after another and
// call Reset in between.
type Session struct {
	eng   Engine
	log   logger.Logger
	ready bool
}

// NewSession wraps eng. A nil logger discards output.
func NewSession(eng Engine, log logger.Logger) *Session {
	return &Session{eng: eng, log: logger.OrNop(log)}
}

// Reset clears the engine, recompiles the model and selects the stepping
// mode. It erases every mutation applied by a previous scenario.
func (s *Session) Reset(modelPath string, mode ModeSpec) error {
	s.ready = false
	if err := s.eng.Clear(); err != nil {
		return wrap(ErrCompileFailed, fmt.Errorf("clear: %w", err))
	}
	if err := s.eng.Compile(modelPath); err != nil {
		return wrap(ErrCompileFailed, fmt.Errorf("compile %s: %w", modelPath, err))
	}
	if err := s.eng.SetMode(mode); err != nil {
		return wrap(ErrCompileFailed, fmt.Errorf("%s: %w", mode.Text(), err))
	}
	s.ready = true
	return nil
}

// Apply forwards one command to the engine.
func (s *Session) Apply(cmd model.Command) error {
	if !s.ready {
		return ErrNoSession
	}
	text := cmd.Text()
	if err := s.eng.Issue(text); err != nil {
		return wrap(ErrCommandRejected, fmt.Errorf("%q: %w", text, err))
	}
	return nil
}

// Solve advances the engine by one step.
func (s *Session) Solve() error {
	if !s.ready {
		return ErrNoSession
	}
	if err := s.eng.SolveStep(); err != nil {
		return wrap(ErrSolveFailed, err)
	}
	return nil
}

// IsIslanded reports whether the alternate source is addressable and
// enabled. A selection failure means grid-tied.
func (s *Session) IsIslanded(source string) bool {
	return s.eng.SelectElement(source) && s.eng.IsEnabled()
}

// PVPowerKW returns the generation of a PV element, 0 when it is missing or
// disabled. The engine reports generation as negative power.
func (s *Session) PVPowerKW(element string) float64 {
	if !s.eng.SelectElement(element) || !s.eng.IsEnabled() {
		return 0
	}
	p := s.eng.ReadPowers()
	if len(p) == 0 {
		return 0
	}
	return Normalize(-p[0])
}

// Battery reads state of charge from socProperty and the battery power
// magnitude. A parsed state of charge is clamped to [0,100]; zero marks an
// invalid reading.
func (s *Session) Battery(element, socProperty string) BatteryTelemetry {
	var t BatteryTelemetry
	if !s.eng.SelectElement(element) {
		return t
	}
	raw, err := s.eng.ReadProperty(socProperty)
	if err != nil {
		s.log.Debugf("read %s.%s: %v", element, socProperty, err)
	} else if soc, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64); perr == nil && !math.IsNaN(soc) && !math.IsInf(soc, 0) {
		t.SoCPct = math.Max(0, math.Min(100, soc))
	}
	if p := s.eng.ReadPowers(); len(p) > 0 {
		t.KW = math.Abs(Normalize(sumPhases(p)))
	}
	return t
}

// LoadKW returns the demand magnitude of one load element.
func (s *Session) LoadKW(element string) float64 {
	if !s.eng.SelectElement(element) {
		return 0
	}
	p := s.eng.ReadPowers()
	if len(p) == 0 {
		return 0
	}
	return math.Abs(Normalize(sumPhases(p)))
}

// TotalLoadKW sums LoadKW over elements.
func (s *Session) TotalLoadKW(elements []string) float64 {
	total := 0.0
	for _, e := range elements {
		total += s.LoadKW(e)
	}
	return total
}

// BusVoltage returns the first-phase voltage magnitude of bus, 0 when the bus
// is missing or the reading is out of range.
func (s *Session) BusVoltage(bus string) float64 {
	if !s.eng.SelectBus(bus) {
		return 0
	}
	return Normalize(s.eng.ReadVoltageMagnitude())
}

// Close releases the engine when it holds resources.
func (s *Session) Close() error {
	s.ready = false
	if c, ok := s.eng.(Closer); ok {
		return c.Close()
	}
	return nil
}

func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
