// Package mathx contains small numeric helpers shared by the tracking packages.
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
// Non-finite values are returned unchanged.
func Round(x, unit float64) float64 {
	if !Finite(x) || unit <= 0 {
		return x
	}
	return math.Round(x/unit) * unit
}

// Clamp limits x to the closed interval [low, high]
func Clamp(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

// Finite is true if x is neither NaN nor +/-Inf
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite is true if every element of xs is Finite
func AllFinite(xs []float64) bool {
	for _, x := range xs {
		if !Finite(x) {
			return false
		}
	}
	return true
}
