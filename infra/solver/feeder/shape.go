package feeder

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// shape is a daily multiplier curve sampled at equally spaced points over 24
// hours and interpolated linearly, wrapping at midnight.
type shape struct {
	fit interp.PiecewiseLinear
}

func newShape(points []float64) (*shape, error) {
	n := len(points)
	step := 24.0 / float64(n)
	xs := make([]float64, n+1)
	ys := make([]float64, n+1)
	for i, p := range points {
		xs[i] = float64(i) * step
		ys[i] = p
	}
	xs[n] = 24
	ys[n] = points[0]
	s := &shape{}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, err
	}
	return s, nil
}

// at returns the multiplier at hour h of the day.
func (s *shape) at(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return s.fit.Predict(h)
}
