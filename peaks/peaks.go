// Package peaks finds coarse peaks in a profile by thresholding.
//
// A peak is a maximal run of samples at or above the threshold.  Its center is
// the midpoint of the run, its amplitude the largest sample inside the run, and
// its inverse half width the reciprocal of half the run length.  These coarse
// estimates seed the Gaussian fits in package gaussfit.
package peaks

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FallbackInvHalfWidth is the inverse half width given to a single sample run,
// whose half width is zero
const FallbackInvHalfWidth = 1.0

// Peak is a single peak, a*exp(-b*(x-x0)^2) once refined.  Before refinement
// InvHalfWidth holds 1/halfwidth of the threshold run
type Peak struct {
	Center       float64 `json:"center"`
	Amplitude    float64 `json:"amplitude"`
	InvHalfWidth float64 `json:"invHalfWidth"`
}

// Run is a maximal run of samples above threshold, inclusive on both ends
type Run struct {
	Start, End int
}

// Len returns the number of samples in the run
func (r Run) Len() int {
	return r.End - r.Start + 1
}

// Runs returns the maximal runs where p[j] >= threshold, ordered by start
func Runs(p []float64, threshold float64) []Run {
	var (
		out []Run
		in  bool
		cur Run
	)
	for j, v := range p {
		above := v >= threshold
		switch {
		case above && !in:
			cur = Run{Start: j, End: j}
			in = true
		case above && in:
			cur.End = j
		case !above && in:
			out = append(out, cur)
			in = false
		}
	}
	if in {
		out = append(out, cur)
	}
	return out
}

// FromRun computes the coarse peak for a run of p
func FromRun(p []float64, r Run) Peak {
	pk := Peak{
		Center:       float64(r.Start+r.End) / 2,
		Amplitude:    floats.Max(p[r.Start : r.End+1]),
		InvHalfWidth: FallbackInvHalfWidth,
	}
	if r.End != r.Start {
		pk.InvHalfWidth = 1 / (float64(r.End-r.Start) / 2)
	}
	return pk
}

// Segment returns the coarse peaks of p, ordered by position
func Segment(p []float64, threshold float64) []Peak {
	runs := Runs(p, threshold)
	out := make([]Peak, len(runs))
	for i, r := range runs {
		out[i] = FromRun(p, r)
	}
	return out
}

// RelativeHeights returns the matrix M[i][j] = a_i / a_j.  Entries with a zero
// denominator are NaN
func RelativeHeights(ps []Peak) [][]float64 {
	m := make([][]float64, len(ps))
	for i := range ps {
		m[i] = make([]float64, len(ps))
		for j := range ps {
			if ps[j].Amplitude == 0 {
				m[i][j] = math.NaN()
				continue
			}
			m[i][j] = ps[i].Amplitude / ps[j].Amplitude
		}
	}
	return m
}

// Amplitudes returns the amplitude of each peak
func Amplitudes(ps []Peak) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Amplitude
	}
	return out
}
