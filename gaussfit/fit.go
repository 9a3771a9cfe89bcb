package gaussfit

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/nasa-jpl/peaktrack/mathx"
	"github.com/nasa-jpl/peaktrack/peaks"
)

var (
	// ErrFitDivergence is generated when the solver does not converge, or
	// converges to non-finite or non-positive width parameters
	ErrFitDivergence = errors.New("gaussian fit did not converge")

	// ErrDegenerateWindow is generated when there are fewer samples than parameters
	ErrDegenerateWindow = errors.New("too few samples to fit")

	// ErrLengthMismatch is generated when x and y differ in length
	ErrLengthMismatch = errors.New("x and y must be the same length")
)

// UnseededB is the initial width term of a peak with no width estimate
const UnseededB = 1.0

// FitJoint refines seeds jointly against all of (x, y).  Zero seeds is not an
// error and returns an empty result.
func FitJoint(x, y []float64, seeds []peaks.Peak, s Settings) ([]peaks.Peak, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}
	if len(seeds) == 0 {
		return []peaks.Peak{}, nil
	}
	if len(x) < 3*len(seeds) {
		return nil, fmt.Errorf("%d samples for %d peaks: %w", len(x), len(seeds), ErrDegenerateWindow)
	}
	start := make([]peaks.Peak, len(seeds))
	copy(start, seeds)
	for i := range start {
		if start[i].InvHalfWidth == 0 {
			start[i].InvHalfWidth = UnseededB
		}
	}
	theta, ok := levmar(sumModel{x: x}, y, params(start), s.withDefaults())
	out := unpack(theta)
	if err := validate(out, ok); err != nil {
		return nil, err
	}
	return out, nil
}

// FitWindow fits a single peak to the samples with index in [int(lo), int(hi)).
// The seed is x0 at the mean of x over the window, a at the max of y, and b=1.
func FitWindow(x, y []float64, lo, hi float64, s Settings) (peaks.Peak, error) {
	if len(x) != len(y) {
		return peaks.Peak{}, ErrLengthMismatch
	}
	i0, i1 := Window(len(x), lo, hi)
	if i1-i0 < 3 {
		return peaks.Peak{}, fmt.Errorf("window [%g, %g) holds %d samples: %w", lo, hi, max(i1-i0, 0), ErrDegenerateWindow)
	}
	xs, ys := x[i0:i1], y[i0:i1]
	seed := peaks.Peak{
		Center:       floats.Sum(xs) / float64(len(xs)),
		Amplitude:    floats.Max(ys),
		InvHalfWidth: UnseededB,
	}
	theta, ok := levmar(sumModel{x: xs}, ys, params([]peaks.Peak{seed}), s.withDefaults())
	out := unpack(theta)
	if err := validate(out, ok); err != nil {
		return peaks.Peak{}, fmt.Errorf("window [%g, %g): %w", lo, hi, err)
	}
	return out[0], nil
}

// Window converts an interval to the index range [i0, i1) it covers in a
// profile of length n
func Window(n int, lo, hi float64) (i0, i1 int) {
	i0 = int(mathx.Clamp(lo, 0, float64(n)))
	i1 = int(mathx.Clamp(hi, 0, float64(n)))
	return i0, i1
}

func validate(ps []peaks.Peak, converged bool) error {
	if !converged {
		return ErrFitDivergence
	}
	for _, p := range ps {
		if !mathx.AllFinite([]float64{p.Center, p.Amplitude, p.InvHalfWidth}) || p.InvHalfWidth <= 0 {
			return ErrFitDivergence
		}
	}
	return nil
}
