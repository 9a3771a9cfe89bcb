// Package profile reduces camera frames to one dimensional intensity profiles.
package profile

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/gift"
	"gonum.org/v1/gonum/floats"

	"github.com/nasa-jpl/peaktrack/camera"
)

var (
	// ErrEmptyProfile is generated when a profile carries no signal, i.e. its maximum is zero
	ErrEmptyProfile = errors.New("profile is empty (all zero)")

	// ErrEmptyFrame is generated when a frame has no samples or its buffer does not match its shape
	ErrEmptyFrame = errors.New("frame is empty or malformed")
)

// Profile is a 1-D intensity profile, one sample per column (or row) of a frame
type Profile []float64

// Clone returns a copy of the profile
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	copy(out, p)
	return out
}

// Axis selects the direction of the reduction
type Axis int

const (
	// Columns averages down each column, producing one sample per column
	Columns Axis = iota

	// Rows averages along each row, producing one sample per row
	Rows
)

// String implements fmt.Stringer
func (a Axis) String() string {
	if a == Rows {
		return "rows"
	}
	return "columns"
}

// MarshalText implements encoding.TextMarshaler
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Axis) UnmarshalText(b []byte) error {
	v, err := ParseAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAxis converts "columns" or "rows" to an Axis
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "", "columns", "cols", "x":
		return Columns, nil
	case "rows", "y":
		return Rows, nil
	}
	return Columns, fmt.Errorf("unknown axis %q", s)
}

// Options control the reduction
type Options struct {
	// SubtractBackground removes the global mean of the frame before reduction
	SubtractBackground bool

	// Normalize divides the profile by its maximum
	Normalize bool

	// Axis is the direction of the reduction
	Axis Axis

	// Smooth is the sigma, in pixels, of a Gaussian blur applied to the frame
	// before reduction.  Zero disables smoothing
	Smooth float32
}

// Extract reduces a frame to a profile.  The profile is shifted to be
// non-negative, and normalized to a peak of 1 if requested.
//
// If the resulting profile is all zero, it is returned unchanged along with
// ErrEmptyProfile.  Extract never produces NaN or Inf from a finite frame.
func Extract(f camera.Frame, opts Options) (Profile, error) {
	if !f.Valid() {
		return nil, ErrEmptyFrame
	}
	if opts.Smooth > 0 {
		f = smooth(f, opts.Smooth)
	}
	var p Profile
	if opts.Axis == Rows {
		p = make(Profile, f.Height)
		for row := 0; row < f.Height; row++ {
			p[row] = floats.Sum(f.Row(row)) / float64(f.Width)
		}
	} else {
		p = make(Profile, f.Width)
		for row := 0; row < f.Height; row++ {
			floats.Add(p, f.Row(row))
		}
		floats.Scale(1/float64(f.Height), p)
	}

	if opts.SubtractBackground {
		floats.AddConst(-floats.Sum(f.Data)/float64(len(f.Data)), p)
	}
	if lo := floats.Min(p); lo < 0 {
		floats.AddConst(-lo, p)
	}
	hi := floats.Max(p)
	if hi == 0 {
		return p, ErrEmptyProfile
	}
	if opts.Normalize {
		floats.Scale(1/hi, p)
	}
	return p, nil
}

// smooth blurs the frame.  The frame is quantized to 16 bits over its own
// range for the blur and restored to that range afterwards.
func smooth(f camera.Frame, sigma float32) camera.Frame {
	lo, hi := floats.Min(f.Data), floats.Max(f.Data)
	if hi == lo {
		return f
	}
	scaled := camera.Frame{Width: f.Width, Height: f.Height, Data: make([]float64, len(f.Data))}
	k := 65535 / (hi - lo)
	for i, v := range f.Data {
		scaled.Data[i] = (v - lo) * k
	}
	src := scaled.Gray16()
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray16(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	out := camera.FromImage(dst)
	floats.Scale(1/k, out.Data)
	floats.AddConst(lo, out.Data)
	return out
}
