package feeder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/islandsim/core/model"
)

// element is one addressable device of the feeder.
type element interface {
	enabled() bool
	setEnabled(on bool)
	powers() []float64
	property(name string) (string, bool)
	setProperty(name, value string) error
}

type vsource struct {
	def    SourceDef
	on     bool
	output float64 // kW delivered during the last solve
}

func (s *vsource) enabled() bool      { return s.on }
func (s *vsource) setEnabled(on bool) { s.on = on }
func (s *vsource) powers() []float64  { return []float64{-s.output, 0} }

func (s *vsource) property(name string) (string, bool) {
	switch name {
	case "bus1", "bus":
		return s.def.Bus, true
	case "pu":
		return formatFloat(s.def.PU), true
	case "enabled":
		return yesNo(s.on), true
	}
	return "", false
}

func (s *vsource) setProperty(name, value string) error {
	if name != "pu" {
		return fmt.Errorf("vsource.%s: property %q is read-only or unknown", s.def.Name, name)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("vsource.%s: invalid pu %q", s.def.Name, value)
	}
	s.def.PU = v
	return nil
}

type line struct {
	def  LineDef
	on   bool
	flow float64 // kW from From to To
}

func (l *line) enabled() bool      { return l.on }
func (l *line) setEnabled(on bool) { l.on = on }
func (l *line) powers() []float64  { return []float64{l.flow, 0, -l.flow, 0} }

func (l *line) property(name string) (string, bool) {
	switch name {
	case "bus1":
		return l.def.From, true
	case "bus2":
		return l.def.To, true
	case "r1", "r_ohm":
		return formatFloat(l.def.ROhm), true
	case "enabled":
		return yesNo(l.on), true
	}
	return "", false
}

func (l *line) setProperty(name, value string) error {
	if name != "r1" && name != "r_ohm" {
		return fmt.Errorf("line.%s: property %q is read-only or unknown", l.def.Name, name)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("line.%s: invalid resistance %q", l.def.Name, value)
	}
	l.def.ROhm = v
	return nil
}

type load struct {
	def    LoadDef
	on     bool
	shapes map[string]*shape
	p, q   float64
}

func (l *load) enabled() bool      { return l.on }
func (l *load) setEnabled(on bool) { l.on = on }

func (l *load) powers() []float64 {
	return spread(l.p, l.q, l.def.Phases)
}

// demand returns the kW drawn at hour h when energised.
func (l *load) demand(h float64) float64 {
	if !l.on {
		return 0
	}
	m := 1.0
	if s, ok := l.shapes[l.def.Daily]; ok {
		m = s.at(h)
	}
	return l.def.KW * m
}

func (l *load) serve(p float64) {
	l.p = p
	pf := l.def.PF
	if pf <= 0 || pf > 1 {
		pf = 1
	}
	l.q = p * math.Tan(math.Acos(pf))
}

func (l *load) property(name string) (string, bool) {
	switch name {
	case "kw":
		return formatFloat(l.def.KW), true
	case "pf":
		return formatFloat(l.def.PF), true
	case "daily":
		return l.def.Daily, true
	case "bus1":
		return l.def.Bus, true
	case "enabled":
		return yesNo(l.on), true
	}
	return "", false
}

func (l *load) setProperty(name, value string) error {
	switch name {
	case "kw":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("load.%s: invalid kw %q", l.def.Name, value)
		}
		l.def.KW = v
	case "pf":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 || v > 1 {
			return fmt.Errorf("load.%s: invalid pf %q", l.def.Name, value)
		}
		l.def.PF = v
	case "daily":
		if _, ok := l.shapes[value]; !ok {
			return fmt.Errorf("load.%s: unknown loadshape %q", l.def.Name, value)
		}
		l.def.Daily = value
	default:
		return fmt.Errorf("load.%s: unknown property %q", l.def.Name, name)
	}
	return nil
}

type pvsystem struct {
	def    PVDef
	on     bool
	shapes map[string]*shape
	p      float64
}

func (p *pvsystem) enabled() bool      { return p.on }
func (p *pvsystem) setEnabled(on bool) { p.on = on }
func (p *pvsystem) powers() []float64  { return []float64{-p.p, 0} }

// available returns the kW the array can produce at hour h.
func (p *pvsystem) available(h float64) float64 {
	if !p.on {
		return 0
	}
	m := 1.0
	if s, ok := p.shapes[p.def.Daily]; ok {
		m = s.at(h)
	}
	return math.Max(0, p.def.PmppKW*m)
}

func (p *pvsystem) property(name string) (string, bool) {
	switch name {
	case "pmpp":
		return formatFloat(p.def.PmppKW), true
	case "daily":
		return p.def.Daily, true
	case "bus1":
		return p.def.Bus, true
	case "enabled":
		return yesNo(p.on), true
	}
	return "", false
}

func (p *pvsystem) setProperty(name, value string) error {
	switch name {
	case "daily":
		if _, ok := p.shapes[value]; !ok {
			return fmt.Errorf("pvsystem.%s: unknown loadshape %q", p.def.Name, value)
		}
		p.def.Daily = value
	case "pmpp":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("pvsystem.%s: invalid pmpp %q", p.def.Name, value)
		}
		p.def.PmppKW = v
	default:
		return fmt.Errorf("pvsystem.%s: unknown property %q", p.def.Name, name)
	}
	return nil
}

type storage struct {
	def StorageDef
	on  bool
	bat *battery
}

func (s *storage) enabled() bool      { return s.on }
func (s *storage) setEnabled(on bool) { s.on = on }

// powers reports discharge as negative power spread over three phases.
func (s *storage) powers() []float64 { return spread(-s.bat.output, 0, 3) }

func (s *storage) property(name string) (string, bool) {
	switch name {
	case "%stored":
		return formatFloat(s.bat.storedPct()), true
	case "kwhstored":
		return formatFloat(s.bat.storedKWh), true
	case "state":
		return s.bat.state.String(), true
	case "kw":
		return formatFloat(s.bat.kwTarget), true
	case "kwrated":
		return formatFloat(s.bat.kwRated), true
	case "kwhrated":
		return formatFloat(s.bat.kwhRated), true
	case "%reserve":
		return formatFloat(s.bat.reservePct), true
	case "bus1":
		return s.def.Bus, true
	case "enabled":
		return yesNo(s.on), true
	}
	return "", false
}

func (s *storage) setProperty(name, value string) error {
	if name == "state" {
		st, ok := model.ParseStorageState(value)
		if !ok {
			return fmt.Errorf("storage.%s: invalid state %q", s.def.Name, value)
		}
		s.bat.state = st
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("storage.%s: invalid %s %q", s.def.Name, name, value)
	}
	switch name {
	case "kw":
		s.bat.kwTarget = math.Abs(v)
	case "%stored":
		s.bat.storedKWh = clamp(v, 0, 100) / 100 * s.bat.kwhRated
	case "%reserve":
		s.bat.reservePct = clamp(v, 0, 100)
	default:
		return fmt.Errorf("storage.%s: unknown property %q", s.def.Name, name)
	}
	return nil
}

func (s *storage) command(st model.StorageState, kw float64) {
	s.bat.state = st
	s.bat.kwTarget = math.Abs(kw)
}

// spread splits p and q over phases in interleaved [P1,Q1,P2,Q2,...] form.
func spread(p, q float64, phases int) []float64 {
	if phases < 1 {
		phases = 1
	}
	out := make([]float64, 0, 2*phases)
	for i := 0; i < phases; i++ {
		out = append(out, p/float64(phases), q/float64(phases))
	}
	return out
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func key(class, name string) string {
	return strings.ToLower(class) + "." + strings.ToLower(name)
}
