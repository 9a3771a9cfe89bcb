/*Package lissajous compares pairs of channel histories.

Plotting one channel against another traces a Lissajous figure whose shape
reveals the relative phase of the two.  This package aligns the series,
summarizes the figure with a correlation and a phase estimate, and renders
it, or the raw histories, to PNG.

*/
package lissajous

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the relationship between two aligned series
type Summary struct {
	// N is the number of aligned samples
	N int `json:"n"`

	// Correlation is the Pearson correlation coefficient, NaN if undefined
	Correlation float64 `json:"correlation"`

	// Phase is the phase of y relative to x in radians at the dominant
	// frequency of x, in (-pi, pi].  NaN if undefined
	Phase float64 `json:"phase"`

	// Bin is the FFT bin of the dominant frequency of x
	Bin int `json:"bin"`
}

// Align truncates x and y to their common length, keeping the most recent samples
func Align(x, y []float64) (ax, ay []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	return x[len(x)-n:], y[len(y)-n:]
}

// Correlation returns the Pearson correlation of the aligned series
func Correlation(x, y []float64) float64 {
	x, y = Align(x, y)
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Phase returns the phase of y relative to x at the dominant non-DC frequency
// of x, and the bin it was measured in
func Phase(x, y []float64) (phase float64, bin int) {
	x, y = Align(x, y)
	if len(x) < 4 {
		return math.NaN(), 0
	}
	X := fft.FFTReal(demean(x))
	Y := fft.FFTReal(demean(y))
	best := 0.
	for k := 1; k <= len(X)/2; k++ {
		if m := cmplx.Abs(X[k]); m > best {
			best, bin = m, k
		}
	}
	if bin == 0 {
		return math.NaN(), 0
	}
	return wrap(cmplx.Phase(Y[bin]) - cmplx.Phase(X[bin])), bin
}

// Summarize computes the Summary of two series
func Summarize(x, y []float64) Summary {
	ax, _ := Align(x, y)
	phase, bin := Phase(x, y)
	return Summary{N: len(ax), Correlation: Correlation(x, y), Phase: phase, Bin: bin}
}

func demean(s []float64) []float64 {
	m := stat.Mean(s, nil)
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v - m
	}
	return out
}

// wrap maps an angle to (-pi, pi]
func wrap(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
