// Package feeder is an in-process solver engine for small radial microgrids.
// It understands the edit command grammar used by the simulation, follows
// daily load and PV shapes, integrates storage energy and computes bus
// voltages with a nodal solve.
package feeder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/islandsim/core/logger"
	"github.com/kilianp07/islandsim/core/model"
	"github.com/kilianp07/islandsim/core/solver"
)

// ErrNotCompiled is returned by operations issued before Compile.
var ErrNotCompiled = errors.New("feeder: no model compiled")

// Engine implements solver.Engine in memory. It is not safe for concurrent
// use.
type Engine struct {
	override string
	log      logger.Logger

	mdl      *Model
	elements map[string]element
	sources  []*vsource
	lines    []*line
	loads    []*load
	pvs      []*pvsystem
	storages []*storage
	busOrder []string
	voltage  map[string]float64

	mode  solver.ModeSpec
	steps int

	active    element
	activeBus string
}

var _ solver.Engine = (*Engine)(nil)

// New returns an empty engine. When modelOverride is set, Compile loads it
// in place of the requested path.
func New(modelOverride string, log logger.Logger) *Engine {
	return &Engine{override: modelOverride, log: logger.OrNop(log)}
}

// Clear drops the compiled model.
func (e *Engine) Clear() error {
	e.mdl = nil
	e.elements = nil
	e.sources, e.lines, e.loads, e.pvs, e.storages = nil, nil, nil, nil, nil
	e.busOrder = nil
	e.voltage = nil
	e.steps = 0
	e.active = nil
	e.activeBus = ""
	return nil
}

// Compile loads the model at path and resets time to midnight.
func (e *Engine) Compile(path string) error {
	if e.override != "" && e.override != path {
		e.log.Debugf("compiling %s in place of %s", e.override, path)
		path = e.override
	}
	m, err := LoadModel(path)
	if err != nil {
		return err
	}
	shapes := make(map[string]*shape, len(m.LoadShapes))
	for name, pts := range m.LoadShapes {
		s, err := newShape(pts)
		if err != nil {
			return fmt.Errorf("loadshape %s: %w", name, err)
		}
		shapes[name] = s
	}
	_ = e.Clear()
	e.mdl = m
	e.elements = make(map[string]element)
	e.voltage = make(map[string]float64, len(m.Buses))
	for _, b := range m.Buses {
		b = strings.ToLower(b)
		e.busOrder = append(e.busOrder, b)
		e.voltage[b] = 0
	}
	for _, d := range m.Sources {
		s := &vsource{def: d, on: d.Enabled}
		e.sources = append(e.sources, s)
		e.elements[key("vsource", d.Name)] = s
	}
	for _, d := range m.Lines {
		on := d.Enabled == nil || *d.Enabled
		l := &line{def: d, on: on}
		e.lines = append(e.lines, l)
		e.elements[key("line", d.Name)] = l
	}
	for _, d := range m.Loads {
		l := &load{def: d, on: true, shapes: shapes}
		e.loads = append(e.loads, l)
		e.elements[key("load", d.Name)] = l
	}
	for _, d := range m.PVSystems {
		p := &pvsystem{def: d, on: d.Enabled, shapes: shapes}
		e.pvs = append(e.pvs, p)
		e.elements[key("pvsystem", d.Name)] = p
	}
	for _, d := range m.Storages {
		s := &storage{def: d, on: true, bat: newBattery(d)}
		e.storages = append(e.storages, s)
		e.elements[key("storage", d.Name)] = s
	}
	e.mode = solver.DailyMinuteMode
	e.log.Infof("compiled %s: %d buses, %d elements", m.Name, len(e.busOrder), len(e.elements))
	return nil
}

// SetMode selects the time stepping.
func (e *Engine) SetMode(m solver.ModeSpec) error {
	if e.mdl == nil {
		return ErrNotCompiled
	}
	switch strings.ToLower(m.Mode) {
	case "daily":
		if m.StepSize <= 0 {
			return fmt.Errorf("daily mode needs a positive step size")
		}
	case "snapshot":
	default:
		return fmt.Errorf("unsupported mode %q", m.Mode)
	}
	if m.Number < 1 {
		m.Number = 1
	}
	e.mode = m
	return nil
}

// Issue executes one command.
func (e *Engine) Issue(text string) error {
	switch c := model.ParseCommand(text).(type) {
	case model.Raw:
		return e.raw(string(c))
	case model.SetEnabled:
		el, err := e.lookup(c.Element)
		if err != nil {
			return err
		}
		el.setEnabled(c.Enabled)
	case model.SetStorageState:
		el, err := e.lookup(c.Element)
		if err != nil {
			return err
		}
		st, ok := el.(*storage)
		if !ok {
			return fmt.Errorf("%s is not a storage element", c.Element)
		}
		st.command(c.State, c.KW)
	case model.SetProperty:
		el, err := e.lookup(c.Element)
		if err != nil {
			return err
		}
		return el.setProperty(strings.ToLower(c.Property), c.Value)
	}
	return nil
}

func (e *Engine) raw(text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}
	switch strings.ToLower(fields[0]) {
	case "clear":
		return e.Clear()
	case "compile", "redirect":
		if len(fields) != 2 {
			return fmt.Errorf("usage: compile <path>")
		}
		return e.Compile(strings.Trim(fields[1], `'"`))
	case "solve":
		return e.SolveStep()
	case "edit":
		return e.edit(fields[1:])
	case "set":
		m, err := parseMode(fields[1:])
		if err != nil {
			return err
		}
		return e.SetMode(m)
	}
	return fmt.Errorf("unsupported command %q", text)
}

// edit applies several property assignments to one element, in order.
func (e *Engine) edit(fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("usage: edit <class.name> <prop=value>...")
	}
	el, err := e.lookup(fields[0])
	if err != nil {
		return err
	}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("invalid assignment %q", f)
		}
		k = strings.ToLower(k)
		if k == "enabled" {
			on, ok := parseYes(v)
			if !ok {
				return fmt.Errorf("invalid enabled value %q", v)
			}
			el.setEnabled(on)
			continue
		}
		if err := el.setProperty(k, v); err != nil {
			return err
		}
	}
	return nil
}

func parseYes(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "yes", "true", "y", "t":
		return true, true
	case "no", "false", "n", "f":
		return false, true
	}
	return false, false
}

func (e *Engine) lookup(name string) (element, error) {
	if e.mdl == nil {
		return nil, ErrNotCompiled
	}
	el, ok := e.elements[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown element %s", name)
	}
	return el, nil
}

// SolveStep advances Number steps of the current mode. Storage integrates
// the setpoint issued before the step, then the network is solved at the
// new time.
func (e *Engine) SolveStep() error {
	if e.mdl == nil {
		return ErrNotCompiled
	}
	for i := 0; i < e.mode.Number; i++ {
		if err := e.solveOnce(); err != nil {
			return fmt.Errorf("step %d: %w", e.steps, err)
		}
		if strings.EqualFold(e.mode.Mode, "daily") {
			e.steps++
		}
	}
	return nil
}

func (e *Engine) solveOnce() error {
	hour := e.hour()
	live := e.energised()
	inject := make(map[string]float64)

	for _, s := range e.storages {
		bus := strings.ToLower(s.def.Bus)
		s.bat.step(e.stepSize(), s.on && live[bus])
		inject[bus] += s.bat.output
	}
	for _, p := range e.pvs {
		bus := strings.ToLower(p.def.Bus)
		p.p = 0
		if live[bus] {
			p.p = p.available(hour)
		}
		inject[bus] += p.p
	}
	for _, l := range e.loads {
		bus := strings.ToLower(l.def.Bus)
		p := 0.0
		if live[bus] {
			p = l.demand(hour)
		}
		l.serve(p)
		inject[bus] -= p
	}
	return e.solveNetwork(live, inject)
}

// hour is the time of day of the next step.
func (e *Engine) hour() float64 {
	return (time.Duration(e.steps) * e.stepSize()).Hours()
}

func (e *Engine) stepSize() time.Duration {
	if !strings.EqualFold(e.mode.Mode, "daily") {
		return 0
	}
	return e.mode.StepSize
}

func (e *Engine) SelectElement(name string) bool {
	e.active = nil
	if e.mdl == nil {
		return false
	}
	el, ok := e.elements[strings.ToLower(name)]
	if ok {
		e.active = el
	}
	return ok
}

func (e *Engine) IsEnabled() bool { return e.active != nil && e.active.enabled() }

func (e *Engine) ReadPowers() []float64 {
	if e.active == nil {
		return nil
	}
	return e.active.powers()
}

func (e *Engine) ReadProperty(name string) (string, error) {
	if e.active == nil {
		return "", fmt.Errorf("no active element")
	}
	v, ok := e.active.property(strings.ToLower(name))
	if !ok {
		return "", fmt.Errorf("unknown property %s", name)
	}
	return v, nil
}

func (e *Engine) SelectBus(name string) bool {
	e.activeBus = ""
	if e.voltage == nil {
		return false
	}
	b := strings.ToLower(name)
	if _, ok := e.voltage[b]; !ok {
		return false
	}
	e.activeBus = b
	return true
}

func (e *Engine) ReadVoltageMagnitude() float64 {
	if e.activeBus == "" {
		return 0
	}
	return e.voltage[e.activeBus]
}

// parseMode reads "mode=daily stepsize=1m number=1".
func parseMode(fields []string) (solver.ModeSpec, error) {
	m := solver.ModeSpec{Number: 1}
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return m, fmt.Errorf("invalid option %q", f)
		}
		switch strings.ToLower(k) {
		case "mode":
			m.Mode = strings.ToLower(v)
		case "stepsize":
			d, err := parseStep(v)
			if err != nil {
				return m, err
			}
			m.StepSize = d
		case "number":
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 {
				return m, fmt.Errorf("invalid number %q", v)
			}
			m.Number = n
		default:
			return m, fmt.Errorf("unsupported option %q", k)
		}
	}
	return m, nil
}

// parseStep accepts Go durations and the bare "1m", "15s", "1h" forms.
func parseStep(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid stepsize %q", v)
	}
	return d, nil
}
