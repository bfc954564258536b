package feeder

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// maxIterations bounds the constant-power fixed point per island.
const maxIterations = 8

// energised returns the buses reachable from an enabled source through
// closed lines.
func (e *Engine) energised() map[string]bool {
	adj := make(map[string][]string)
	for _, l := range e.lines {
		if !l.on {
			continue
		}
		a, b := strings.ToLower(l.def.From), strings.ToLower(l.def.To)
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	seen := make(map[string]bool)
	var queue []string
	for _, s := range e.sources {
		if s.on {
			b := strings.ToLower(s.def.Bus)
			if !seen[b] {
				seen[b] = true
				queue = append(queue, b)
			}
		}
	}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, n := range adj[b] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}

// solveNetwork computes bus voltages for the energised buses given the net
// kW injection of each bus. Source buses are held at their set voltage and
// every other energised bus draws a constant-power current.
func (e *Engine) solveNetwork(live map[string]bool, injectKW map[string]float64) error {
	fixed := make(map[string]float64)
	for _, s := range e.sources {
		if s.on {
			fixed[strings.ToLower(s.def.Bus)] = s.def.PU * e.mdl.BaseVoltage
		}
	}
	idx := make(map[string]int)
	var unknown []string
	for _, b := range e.busOrder {
		if live[b] {
			if _, ok := fixed[b]; !ok {
				idx[b] = len(unknown)
				unknown = append(unknown, b)
			}
		}
	}

	for b := range e.voltage {
		e.voltage[b] = 0
	}
	for b, v := range fixed {
		e.voltage[b] = v
	}

	n := len(unknown)
	if n > 0 {
		g := mat.NewDense(n, n, nil)
		base := mat.NewVecDense(n, nil)
		for _, l := range e.lines {
			if !l.on {
				continue
			}
			a, b := strings.ToLower(l.def.From), strings.ToLower(l.def.To)
			if !live[a] || !live[b] {
				continue
			}
			y := 1 / l.def.ROhm
			ia, aUnknown := idx[a]
			ib, bUnknown := idx[b]
			switch {
			case aUnknown && bUnknown:
				g.Set(ia, ia, g.At(ia, ia)+y)
				g.Set(ib, ib, g.At(ib, ib)+y)
				g.Set(ia, ib, g.At(ia, ib)-y)
				g.Set(ib, ia, g.At(ib, ia)-y)
			case aUnknown:
				g.Set(ia, ia, g.At(ia, ia)+y)
				base.SetVec(ia, base.AtVec(ia)+y*fixed[b])
			case bUnknown:
				g.Set(ib, ib, g.At(ib, ib)+y)
				base.SetVec(ib, base.AtVec(ib)+y*fixed[a])
			}
		}

		v := mat.NewVecDense(n, nil)
		for i := range unknown {
			v.SetVec(i, e.mdl.BaseVoltage)
		}
		rhs := mat.NewVecDense(n, nil)
		for it := 0; it < maxIterations; it++ {
			for i, b := range unknown {
				vi := v.AtVec(i)
				if vi < 1 {
					vi = 1
				}
				rhs.SetVec(i, base.AtVec(i)+injectKW[b]*1000/vi)
			}
			var next mat.VecDense
			if err := next.SolveVec(g, rhs); err != nil {
				return fmt.Errorf("nodal solve: %w", err)
			}
			delta := 0.0
			for i := 0; i < n; i++ {
				delta = math.Max(delta, math.Abs(next.AtVec(i)-v.AtVec(i)))
			}
			v.CopyVec(&next)
			if delta < 1e-6 {
				break
			}
		}
		for i, b := range unknown {
			vi := v.AtVec(i)
			if vi < 0 || math.IsNaN(vi) {
				return fmt.Errorf("nodal solve: voltage collapse at bus %s", b)
			}
			e.voltage[b] = vi
		}
	}

	for _, l := range e.lines {
		l.flow = 0
		a, b := strings.ToLower(l.def.From), strings.ToLower(l.def.To)
		if l.on && live[a] && live[b] {
			l.flow = (e.voltage[a] - e.voltage[b]) / l.def.ROhm * e.voltage[a] / 1000
		}
	}
	for _, s := range e.sources {
		s.output = 0
		if !s.on {
			continue
		}
		bus := strings.ToLower(s.def.Bus)
		for _, l := range e.lines {
			switch bus {
			case strings.ToLower(l.def.From):
				s.output += l.flow
			case strings.ToLower(l.def.To):
				s.output -= l.flow
			}
		}
		s.output -= injectKW[bus]
	}
	return nil
}
