package tracker

import (
	"fmt"
	"math"
	"strings"

	"github.com/nasa-jpl/peaktrack/gaussfit"
	"github.com/nasa-jpl/peaktrack/history"
	"github.com/nasa-jpl/peaktrack/profile"
	"github.com/nasa-jpl/peaktrack/span"
)

// FitMode selects how peaks are refined
type FitMode int

const (
	// Joint fits every detected peak at once against the whole profile
	Joint FitMode = iota

	// PerSpan fits one peak inside each span independently
	PerSpan
)

// String implements fmt.Stringer
func (m FitMode) String() string {
	switch m {
	case Joint:
		return "joint"
	case PerSpan:
		return "per-span"
	}
	return fmt.Sprintf("FitMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler
func (m FitMode) MarshalText() ([]byte, error) {
	if m != Joint && m != PerSpan {
		return nil, fmt.Errorf("%w: unknown fit mode %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *FitMode) UnmarshalText(b []byte) error {
	v, err := ParseFitMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseFitMode converts a mode name to a FitMode.  "all" and "peak-by-peak"
// are accepted as aliases of joint and per-span
func ParseFitMode(s string) (FitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "joint", "all", "all-peaks":
		return Joint, nil
	case "per-span", "perspan", "span", "peak-by-peak", "peakbypeak":
		return PerSpan, nil
	}
	return Joint, fmt.Errorf("%w: unknown fit mode %q", ErrInvalidConfig, s)
}

// Config holds everything that shapes a tick
type Config struct {
	// Threshold is the level a sample must reach to belong to a peak
	Threshold float64

	// MaxPeaks is the most threshold runs a tick will fit.  Ticks finding
	// more are aborted with ErrPeakCountExceeded
	MaxPeaks int

	// Mode selects joint or per-span fitting
	Mode FitMode

	// SampleWindow is the span of time, in seconds, the history buffers cover
	SampleWindow float64

	// FrameRate is the tick rate in Hz
	FrameRate float64

	// SubtractBackground, Normalize, Axis and Smooth are passed to profile.Extract
	SubtractBackground bool
	Normalize          bool
	Axis               profile.Axis
	Smooth             float32

	// Reducer names the function that collapses a span to one history value,
	// "max" or "sum"
	Reducer string

	// DomainLo and DomainHi bound the spans
	DomainLo, DomainHi float64

	// Fit holds the solver settings
	Fit gaussfit.Settings
}

// DefaultConfig returns a configuration for a normalized profile with two
// channels sampled at 10 Hz over 5 seconds
func DefaultConfig() Config {
	return Config{
		Threshold:    0.5,
		MaxPeaks:     2,
		Mode:         Joint,
		SampleWindow: 5,
		FrameRate:    10,
		Normalize:    true,
		Reducer:      "max",
		DomainLo:     span.DomainLo,
		DomainHi:     span.DomainHi,
		Fit:          gaussfit.DefaultSettings(),
	}
}

// MaxCapacity bounds the length of the history buffers, a little over a day
// at 10 Hz
const MaxCapacity = 1 << 20

// Capacity is the history length, round(SampleWindow * FrameRate)
func (c Config) Capacity() int {
	return int(math.Round(c.SampleWindow * c.FrameRate))
}

// ProfileOptions returns the options passed to profile.Extract
func (c Config) ProfileOptions() profile.Options {
	return profile.Options{
		SubtractBackground: c.SubtractBackground,
		Normalize:          c.Normalize,
		Axis:               c.Axis,
		Smooth:             c.Smooth,
	}
}

// Validate returns an error wrapping ErrInvalidConfig if c is malformed
func (c Config) Validate() error {
	bad := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...)
	}
	switch {
	case math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0):
		return bad("threshold must be finite, got %g", c.Threshold)
	case c.MaxPeaks < 1:
		return bad("max peaks must be at least 1, got %d", c.MaxPeaks)
	case c.Mode != Joint && c.Mode != PerSpan:
		return bad("unknown fit mode %d", int(c.Mode))
	case !(c.SampleWindow > 0):
		return bad("sample window must be positive, got %g", c.SampleWindow)
	case !(c.FrameRate > 0):
		return bad("frame rate must be positive, got %g", c.FrameRate)
	case !(c.SampleWindow*c.FrameRate < MaxCapacity+0.5):
		return bad("%g s at %g Hz exceeds %d samples", c.SampleWindow, c.FrameRate, MaxCapacity)
	case c.Capacity() < 1:
		return bad("%g s at %g Hz holds no samples", c.SampleWindow, c.FrameRate)
	case c.Axis != profile.Columns && c.Axis != profile.Rows:
		return bad("unknown axis %d", int(c.Axis))
	case c.Smooth < 0:
		return bad("smoothing sigma must be non-negative, got %g", c.Smooth)
	case !(c.DomainHi > c.DomainLo):
		return bad("empty span domain [%g, %g]", c.DomainLo, c.DomainHi)
	}
	if _, err := history.ParseReducer(c.Reducer); err != nil {
		return bad("%v", err)
	}
	return nil
}
