// Package solvertest provides a scriptable in-memory Engine for tests.
package solvertest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/islandsim/core/model"
	"github.com/kilianp07/islandsim/core/solver"
)

// Element is the fake state of one network element.
type Element struct {
	Enabled bool
	Powers  []float64
	Props   map[string]string
}

// Engine records every call and serves reads from Elements and Buses.
type Engine struct {
	Elements map[string]*Element
	Buses    map[string]float64

	Issued   []string
	Modes    []solver.ModeSpec
	Compiles int
	Clears   int
	Solves   int

	// FailSolveAt makes the n-th solve (1-based) fail. Zero disables it.
	FailSolveAt int
	CompileErr  error
	IssueErr    error

	// Build populates a fresh model on every Compile.
	Build func(e *Engine)
	// OnSolve runs after each successful solve, step is 0-based.
	OnSolve func(e *Engine, step int)

	active    *Element
	activeBus string
}

var _ solver.Engine = (*Engine)(nil)

// New returns an engine whose model is produced by build.
func New(build func(e *Engine)) *Engine {
	return &Engine{Build: build}
}

// Add registers an element, replacing any previous one of that name.
func (e *Engine) Add(name string, el *Element) {
	if e.Elements == nil {
		e.Elements = map[string]*Element{}
	}
	if el.Props == nil {
		el.Props = map[string]string{}
	}
	e.Elements[strings.ToLower(name)] = el
}

// Get returns the named element or nil.
func (e *Engine) Get(name string) *Element { return e.Elements[strings.ToLower(name)] }

func (e *Engine) Clear() error {
	e.Clears++
	e.Elements = nil
	e.Buses = nil
	e.active = nil
	e.activeBus = ""
	return nil
}

func (e *Engine) Compile(string) error {
	if e.CompileErr != nil {
		return e.CompileErr
	}
	e.Compiles++
	e.Elements = map[string]*Element{}
	e.Buses = map[string]float64{}
	if e.Build != nil {
		e.Build(e)
	}
	return nil
}

func (e *Engine) SetMode(m solver.ModeSpec) error {
	e.Modes = append(e.Modes, m)
	return nil
}

// Issue interprets edit commands against Elements, creating unknown elements.
func (e *Engine) Issue(cmd string) error {
	if e.IssueErr != nil {
		return e.IssueErr
	}
	e.Issued = append(e.Issued, cmd)
	switch c := model.ParseCommand(cmd).(type) {
	case model.SetEnabled:
		e.ensure(c.Element).Enabled = c.Enabled
	case model.SetStorageState:
		el := e.ensure(c.Element)
		el.Props["state"] = c.State.String()
		el.Props["kw"] = strconv.FormatFloat(c.KW, 'f', -1, 64)
	case model.SetProperty:
		e.ensure(c.Element).Props[strings.ToLower(c.Property)] = c.Value
	}
	return nil
}

func (e *Engine) SolveStep() error {
	e.Solves++
	if e.FailSolveAt > 0 && e.Solves == e.FailSolveAt {
		return fmt.Errorf("step %d did not converge", e.Solves)
	}
	if e.OnSolve != nil {
		e.OnSolve(e, e.Solves-1)
	}
	return nil
}

func (e *Engine) SelectElement(name string) bool {
	e.active = e.Get(name)
	return e.active != nil
}

func (e *Engine) IsEnabled() bool { return e.active != nil && e.active.Enabled }

func (e *Engine) ReadPowers() []float64 {
	if e.active == nil {
		return nil
	}
	return append([]float64(nil), e.active.Powers...)
}

func (e *Engine) ReadProperty(name string) (string, error) {
	if e.active == nil {
		return "", fmt.Errorf("no active element")
	}
	v, ok := e.active.Props[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown property %s", name)
	}
	return v, nil
}

func (e *Engine) SelectBus(name string) bool {
	if _, ok := e.Buses[name]; !ok {
		e.activeBus = ""
		return false
	}
	e.activeBus = name
	return true
}

func (e *Engine) ReadVoltageMagnitude() float64 {
	return e.Buses[e.activeBus]
}

// IssuedSince returns the commands issued after the first n.
func (e *Engine) IssuedSince(n int) []string {
	if n >= len(e.Issued) {
		return nil
	}
	return append([]string(nil), e.Issued[n:]...)
}

func (e *Engine) ensure(name string) *Element {
	el := e.Get(name)
	if el == nil {
		el = &Element{Props: map[string]string{}}
		e.Add(name, el)
	}
	return el
}
