package variability

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Interpolant evaluates a tabulated curve.
type Interpolant interface {
	Predict(x float64) float64
}

// InterpFactory fits an Interpolant to samples.
type InterpFactory func(xs, ys []float64) (Interpolant, error)

// InterpByName returns the factory called "spline" or "linear".
func InterpByName(name string) (InterpFactory, error) {
	switch name {
	case "spline":
		return SplineInterp, nil
	case "linear":
		return LinearInterp, nil
	}
	return nil, fmt.Errorf("%w: unknown interpolation %q", ErrParameter, name)
}

// minSplinePoints is the smallest grid a not-a-knot cubic can be fitted to.
const minSplinePoints = 4

// SplineInterp fits an interpolating cubic spline with not-a-knot end
// conditions. Outside the grid the end pieces are extrapolated. Grids too
// short for a cubic fall back to linear.
func SplineInterp(xs, ys []float64) (Interpolant, error) {
	if err := checkGrid(xs, ys); err != nil {
		return nil, err
	}
	if len(xs) < minSplinePoints {
		return LinearInterp(xs, ys)
	}
	s := &spline{}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting spline: %w", err)
	}
	n := len(xs)
	s.first = s.hermite(xs[0], xs[1])
	s.last = s.hermite(xs[n-2], xs[n-1])
	return s, nil
}

// spline is a not-a-knot cubic that continues its first and last pieces
// beyond the grid instead of holding the end values, so phases between
// the last sample and the period stay on the curve.
type spline struct {
	fit         interp.NotAKnotCubic
	first, last hermite
}

func (s *spline) Predict(x float64) float64 {
	switch {
	case x < s.first.x0:
		return s.first.at(x)
	case x > s.last.x1:
		return s.last.at(x)
	}
	return s.fit.Predict(x)
}

// hermite rebuilds the piece of the fit on [x0, x1] from its end values
// and slopes. A cubic is fixed by those four numbers.
func (s *spline) hermite(x0, x1 float64) hermite {
	return hermite{
		x0: x0, x1: x1,
		y0: s.fit.Predict(x0), y1: s.fit.Predict(x1),
		d0: s.fit.PredictDerivative(x0), d1: s.fit.PredictDerivative(x1),
	}
}

// hermite is a cubic given by values and derivatives at two knots.
type hermite struct {
	x0, x1 float64
	y0, y1 float64
	d0, d1 float64
}

func (h hermite) at(x float64) float64 {
	w := h.x1 - h.x0
	u := (x - h.x0) / w
	u2, u3 := u*u, u*u*u
	return (2*u3-3*u2+1)*h.y0 + (u3-2*u2+u)*w*h.d0 + (-2*u3+3*u2)*h.y1 + (u3-u2)*w*h.d1
}

// LinearInterp fits a piecewise-linear interpolant. Outside the grid the
// end values are held.
func LinearInterp(xs, ys []float64) (Interpolant, error) {
	if err := checkGrid(xs, ys); err != nil {
		return nil, err
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting linear interpolant: %w", err)
	}
	return &pl, nil
}

// checkGrid rejects grids gonum would panic on.
func checkGrid(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("%w: grid has %d abscissae and %d ordinates", ErrParameter, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return fmt.Errorf("%w: grid needs at least 2 samples, got %d", ErrParameter, len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return fmt.Errorf("%w: grid not strictly increasing at sample %d", ErrParameter, i)
		}
	}
	return nil
}
