package mathx_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/nasa-jpl/peaktrack/mathx"
)

func ExampleRound() {
	fmt.Println(mathx.Round(1.3, 0.5), mathx.Round(2.7, 1))
	// Output: 1.5 3
}

func TestRoundNegative(t *testing.T) {
	out := mathx.Round(-1.26, 0.1)
	if math.Abs(out-(-1.3)) > 1e-12 {
		t.Errorf("expected -1.3, got %f", out)
	}
}

func TestRoundPassesNaN(t *testing.T) {
	if !math.IsNaN(mathx.Round(math.NaN(), 0.1)) {
		t.Error("expected NaN to round trip through Round")
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := mathx.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := mathx.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestAllFinite(t *testing.T) {
	if !mathx.AllFinite([]float64{0, 1, -2}) {
		t.Error("expected finite slice to be reported finite")
	}
	if mathx.AllFinite([]float64{0, math.Inf(1)}) {
		t.Error("expected slice with +Inf to be reported non-finite")
	}
}
