package camera

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Stripe is one vertical Gaussian stripe in a synthetic frame,
// a*exp(-b*(x-x0)^2) across columns
type Stripe struct {
	// Center is the column of the stripe's peak
	Center float64 `yaml:"Center"`

	// Amplitude is the peak intensity
	Amplitude float64 `yaml:"Amplitude"`

	// B is the inverse squared width term
	B float64 `yaml:"B"`
}

// Synthetic is a mock camera that renders Gaussian stripes.  Each stripe's
// amplitude is slowly modulated, with a phase offset of pi/2 per stripe, so that
// pairs of channels trace Lissajous figures.  It is concurrent safe.
type Synthetic struct {
	sync.Mutex

	// Width and Height are the frame dimensions
	Width, Height int

	// Stripes are the channels drawn into each frame
	Stripes []Stripe

	// Depth is the fractional depth of the amplitude modulation, 0 disables it
	Depth float64

	// ModulationHz is the modulation frequency
	ModulationHz float64

	// Noise is the standard deviation of additive Gaussian noise.  Samples are
	// clipped at zero afterwards
	Noise float64

	frame    int
	rng      *rand.Rand
	init     bool
	exposure time.Duration
	fps      float64
}

// NewSynthetic returns a synthetic camera with a deterministic noise source
func NewSynthetic(width, height int, stripes []Stripe, seed int64) *Synthetic {
	return &Synthetic{
		Width:        width,
		Height:       height,
		Stripes:      stripes,
		ModulationHz: 0.5,
		rng:          rand.New(rand.NewSource(seed)),
		fps:          10,
	}
}

// Initialize resets the frame counter
func (s *Synthetic) Initialize() error {
	s.Lock()
	defer s.Unlock()
	s.frame = 0
	s.init = true
	return nil
}

// Finalize marks the camera uninitialized
func (s *Synthetic) Finalize() error {
	s.Lock()
	defer s.Unlock()
	s.init = false
	return nil
}

// GetFrame renders the next frame
func (s *Synthetic) GetFrame() (Frame, error) {
	s.Lock()
	defer s.Unlock()
	if !s.init {
		return Frame{}, ErrNotInitialized
	}
	t := float64(s.frame) / s.fps
	s.frame++

	line := make([]float64, s.Width)
	for i, st := range s.Stripes {
		a := st.Amplitude
		if s.Depth != 0 {
			phase := float64(i) * math.Pi / 2
			a *= 1 + s.Depth*math.Sin(2*math.Pi*s.ModulationHz*t+phase)
		}
		for x := range line {
			d := float64(x) - st.Center
			line[x] += a * math.Exp(-st.B*d*d)
		}
	}
	f := NewFrame(s.Width, s.Height)
	for row := 0; row < s.Height; row++ {
		dst := f.Row(row)
		copy(dst, line)
		if s.Noise > 0 {
			for x := range dst {
				v := dst[x] + s.rng.NormFloat64()*s.Noise
				if v < 0 {
					v = 0
				}
				dst[x] = v
			}
		}
	}
	return f, nil
}

// SetExposureTime stores the exposure time
func (s *Synthetic) SetExposureTime(d time.Duration) error {
	s.Lock()
	defer s.Unlock()
	s.exposure = d
	return nil
}

// GetExposureTime returns the stored exposure time
func (s *Synthetic) GetExposureTime() (time.Duration, error) {
	s.Lock()
	defer s.Unlock()
	return s.exposure, nil
}

// SetFrameRate sets the frame rate, which is the clock of the modulation
func (s *Synthetic) SetFrameRate(fps float64) error {
	if fps <= 0 {
		return ErrBadFrameRate
	}
	s.Lock()
	defer s.Unlock()
	s.fps = fps
	return nil
}

// GetFrameRate returns the frame rate
func (s *Synthetic) GetFrameRate() (float64, error) {
	s.Lock()
	defer s.Unlock()
	return s.fps, nil
}
