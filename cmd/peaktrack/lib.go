package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nasa-jpl/peaktrack/acquire"
	"github.com/nasa-jpl/peaktrack/camera"
	"github.com/nasa-jpl/peaktrack/gaussfit"
	"github.com/nasa-jpl/peaktrack/generichttp"
	"github.com/nasa-jpl/peaktrack/generichttp/locker"
	"github.com/nasa-jpl/peaktrack/imgrec"
	"github.com/nasa-jpl/peaktrack/profile"
	"github.com/nasa-jpl/peaktrack/tracker"
)

// CameraSetup selects and shapes the frame source
type CameraSetup struct {
	// Type is "synthetic" or "replay"
	Type string `yaml:"Type"`

	// Dir is the folder of frames for a replay camera
	Dir string `yaml:"Dir"`

	// Width, Height, Stripes, Depth, Noise and Seed shape a synthetic camera
	Width   int             `yaml:"Width"`
	Height  int             `yaml:"Height"`
	Stripes []camera.Stripe `yaml:"Stripes"`
	Depth   float64         `yaml:"Depth"`
	Noise   float64         `yaml:"Noise"`
	Seed    int64           `yaml:"Seed"`
}

// SpanSetup is a span created at bootup
type SpanSetup struct {
	Name string  `yaml:"Name"`
	Lo   float64 `yaml:"Lo"`
	Hi   float64 `yaml:"Hi"`
}

// TrackerSetup mirrors tracker.Config with human friendly enums
type TrackerSetup struct {
	Threshold          float64           `yaml:"Threshold"`
	MaxPeaks           int               `yaml:"MaxPeaks"`
	Mode               string            `yaml:"Mode"`
	SampleWindow       float64           `yaml:"SampleWindow"`
	SubtractBackground bool              `yaml:"SubtractBackground"`
	Normalize          bool              `yaml:"Normalize"`
	Axis               string            `yaml:"Axis"`
	Smooth             float32           `yaml:"Smooth"`
	Reducer            string            `yaml:"Reducer"`
	DomainLo           float64           `yaml:"DomainLo"`
	DomainHi           float64           `yaml:"DomainHi"`
	Fit                gaussfit.Settings `yaml:"Fit"`
	Spans              []SpanSetup       `yaml:"Spans"`
}

// RecordSetup configures snapshots and the amplitude log
type RecordSetup struct {
	// Root is the root folder to write to
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`

	// Ext selects the snapshot format, .fits .tif or .png
	Ext string `yaml:"Ext"`

	// LogFile receives one amplitude line per snapshot.  Empty disables it
	LogFile string `yaml:"LogFile"`
}

// Config is the whole program configuration
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Endpoint is the URL the tracker is served under, e.g. "omc/peaks"
	Endpoint string `yaml:"Endpoint"`

	// FrameRate is the acquisition rate in Hz
	FrameRate float64 `yaml:"FrameRate"`

	// Autostart begins acquisition at bootup
	Autostart bool `yaml:"Autostart"`

	// LogLevel is a zap level, "debug" "info" "warn" or "error"
	LogLevel string `yaml:"LogLevel"`

	// LogDevelopment selects zap's console friendly development logger
	LogDevelopment bool `yaml:"LogDevelopment"`

	Camera  CameraSetup  `yaml:"Camera"`
	Tracker TrackerSetup `yaml:"Tracker"`
	Record  RecordSetup  `yaml:"Record"`
}

// DefaultConfig is a synthetic two-stripe camera tracked jointly at 10 Hz
func DefaultConfig() Config {
	tc := tracker.DefaultConfig()
	return Config{
		Addr:      ":8000",
		Endpoint:  "peaktrack",
		FrameRate: tc.FrameRate,
		Autostart: true,
		LogLevel:  "info",
		Camera: CameraSetup{
			Type:   "synthetic",
			Width:  int(tc.DomainHi),
			Height: 16,
			Stripes: []camera.Stripe{
				{Center: 75, Amplitude: 1000, B: 0.01},
				{Center: 125, Amplitude: 800, B: 0.01},
			},
			Depth: 0.2,
			Noise: 2,
			Seed:  1,
		},
		Tracker: TrackerSetup{
			Threshold:          tc.Threshold,
			MaxPeaks:           tc.MaxPeaks,
			Mode:               tc.Mode.String(),
			SampleWindow:       tc.SampleWindow,
			SubtractBackground: tc.SubtractBackground,
			Normalize:          tc.Normalize,
			Axis:               tc.Axis.String(),
			Reducer:            tc.Reducer,
			DomainLo:           tc.DomainLo,
			DomainHi:           tc.DomainHi,
			Fit:                tc.Fit,
		},
		Record: RecordSetup{
			Root:   ".",
			Prefix: "peaktrack_",
			Ext:    imgrec.DefaultExt,
		},
	}
}

// TrackerConfig converts the setup to a tracker configuration
func (c Config) TrackerConfig() (tracker.Config, error) {
	ts := c.Tracker
	mode, err := tracker.ParseFitMode(ts.Mode)
	if err != nil {
		return tracker.Config{}, err
	}
	axis, err := profile.ParseAxis(ts.Axis)
	if err != nil {
		return tracker.Config{}, fmt.Errorf("%w: %v", tracker.ErrInvalidConfig, err)
	}
	cfg := tracker.Config{
		Threshold:          ts.Threshold,
		MaxPeaks:           ts.MaxPeaks,
		Mode:               mode,
		SampleWindow:       ts.SampleWindow,
		FrameRate:          c.FrameRate,
		SubtractBackground: ts.SubtractBackground,
		Normalize:          ts.Normalize,
		Axis:               axis,
		Smooth:             ts.Smooth,
		Reducer:            ts.Reducer,
		DomainLo:           ts.DomainLo,
		DomainHi:           ts.DomainHi,
		Fit:                ts.Fit,
	}
	return cfg, cfg.Validate()
}

// NewLogger builds a zap logger at the configured level
func NewLogger(c Config) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = lvl
	return zc.Build()
}

// NewCamera makes and initializes the configured camera
func NewCamera(c Config) (camera.Controller, error) {
	var cam camera.Controller
	switch strings.ToLower(c.Camera.Type) {
	case "", "synthetic", "mock":
		s := camera.NewSynthetic(c.Camera.Width, c.Camera.Height, c.Camera.Stripes, c.Camera.Seed)
		s.Depth = c.Camera.Depth
		s.Noise = c.Camera.Noise
		cam = s
	case "replay", "playback":
		cam = camera.NewReplay(c.Camera.Dir)
	default:
		return nil, fmt.Errorf("camera type %q not understood", c.Camera.Type)
	}
	if err := cam.Initialize(); err != nil {
		return nil, err
	}
	if err := cam.SetFrameRate(c.FrameRate); err != nil {
		return nil, err
	}
	return cam, nil
}

// NewTracker builds a tracker and creates the bootup spans.  A per-span
// tracker without bootup spans gets MaxPeaks evenly spaced ones
func NewTracker(c Config, log *zap.Logger) (*tracker.Tracker, error) {
	cfg, err := c.TrackerConfig()
	if err != nil {
		return nil, err
	}
	t, err := tracker.New(cfg, log)
	if err != nil {
		return nil, err
	}
	for _, s := range c.Tracker.Spans {
		if _, err := t.AddSpan(s.Name, s.Lo, s.Hi); err != nil {
			return nil, fmt.Errorf("span %q: %w", s.Name, err)
		}
	}
	if cfg.Mode == tracker.PerSpan && len(c.Tracker.Spans) == 0 {
		if _, err := t.InitPeakByPeak(cfg.MaxPeaks); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// BuildMux mounts the tracker, recorder and acquisition routes under the
// configured endpoint, behind a lock.  The root serves /endpoints, a map of
// mount point to route list
func BuildMux(c Config, t *tracker.Tracker, loop *acquire.Loop) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	rec := &imgrec.Recorder{Root: c.Record.Root, Prefix: c.Record.Prefix, Ext: c.Record.Ext, Enabled: true}
	httper := tracker.NewHTTPWrapper(t, rec, c.Record.LogFile)
	acquire.NewHTTPWrapper(loop).Inject(httper)

	lock := locker.New()
	locker.Inject(httper, lock)

	hndlS := generichttp.SubMuxSanitize(c.Endpoint)
	supergraph[hndlS] = httper.RT().Endpoints()

	r := chi.NewRouter()
	r.Use(lock.Check)
	httper.RT().Bind(r)
	root.Mount(hndlS, r)

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}

// grabTimeout is how long a frame grab is retried, a few frame periods
func grabTimeout(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(30 / fps * float64(time.Second))
}
