// Package gaussfit refines coarse peaks with nonlinear least squares.
//
// The model of a single peak is g(x) = a*exp(-b*(x-x0)^2).  Joint fits
// superpose N peaks and solve for all 3N parameters against the whole
// profile.  Window fits solve for one peak within an interval.  Both use a
// Levenberg-Marquardt solver with the analytic Jacobian.
package gaussfit

import (
	"math"

	"github.com/nasa-jpl/peaktrack/peaks"
)

// DefaultCurveSamples is the number of points Curve uses when n <= 0
const DefaultCurveSamples = 1000

// Eval evaluates one peak at x
func Eval(x float64, p peaks.Peak) float64 {
	d := x - p.Center
	return p.Amplitude * math.Exp(-p.InvHalfWidth*d*d)
}

// EvalSum evaluates the superposition of peaks at x
func EvalSum(x float64, ps []peaks.Peak) float64 {
	var sum float64
	for _, p := range ps {
		sum += Eval(x, p)
	}
	return sum
}

// Jacobian returns the partial derivatives of one peak at x with respect to
// (x0, a, b)
func Jacobian(x float64, p peaks.Peak) (dx0, da, db float64) {
	d := x - p.Center
	e := math.Exp(-p.InvHalfWidth * d * d)
	dx0 = 2 * p.Amplitude * p.InvHalfWidth * d * e
	da = e
	db = -p.Amplitude * d * d * e
	return
}

// Curve samples the superposition of peaks at n evenly spaced points on
// [lo, hi], for display
func Curve(ps []peaks.Peak, lo, hi float64, n int) (xs, ys []float64) {
	if n <= 0 {
		n = DefaultCurveSamples
	}
	xs = make([]float64, n)
	ys = make([]float64, n)
	step := 0.
	if n > 1 {
		step = (hi - lo) / float64(n-1)
	}
	for i := range xs {
		xs[i] = lo + float64(i)*step
		ys[i] = EvalSum(xs[i], ps)
	}
	return xs, ys
}

// params flattens peaks to (x0, a, b) triplets
func params(ps []peaks.Peak) []float64 {
	out := make([]float64, 0, 3*len(ps))
	for _, p := range ps {
		out = append(out, p.Center, p.Amplitude, p.InvHalfWidth)
	}
	return out
}

// unpack is the inverse of params
func unpack(theta []float64) []peaks.Peak {
	out := make([]peaks.Peak, len(theta)/3)
	for i := range out {
		out[i] = peaks.Peak{Center: theta[3*i], Amplitude: theta[3*i+1], InvHalfWidth: theta[3*i+2]}
	}
	return out
}

// sumModel adapts a superposition of Gaussians to the solver
type sumModel struct {
	x []float64
}

func (m sumModel) eval(theta, out []float64) {
	ps := unpack(theta)
	for k, x := range m.x {
		out[k] = EvalSum(x, ps)
	}
}

func (m sumModel) jacobian(theta []float64, set func(row, col int, v float64)) {
	ps := unpack(theta)
	for k, x := range m.x {
		for i, p := range ps {
			dx0, da, db := Jacobian(x, p)
			set(k, 3*i, dx0)
			set(k, 3*i+1, da)
			set(k, 3*i+2, db)
		}
	}
}
