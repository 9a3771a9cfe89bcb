package history

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Reducer collapses a slice of a profile to the single value appended to a
// history buffer
type Reducer func([]float64) float64

// Max is the peak amplitude proxy.  It returns 0 for an empty slice
func Max(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Max(s)
}

// Sum is the integrated power proxy
func Sum(s []float64) float64 {
	return floats.Sum(s)
}

// ParseReducer maps "max" or "sum" to its reducer.  The empty string is "max"
func ParseReducer(name string) (Reducer, error) {
	switch strings.ToLower(name) {
	case "", "max":
		return Max, nil
	case "sum":
		return Sum, nil
	}
	return nil, fmt.Errorf("unknown reducer %q, must be one of max, sum", name)
}
