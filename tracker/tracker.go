/*Package tracker runs the peak tracking pipeline.

Each tick reduces a camera frame to a profile, finds the threshold runs in
it, refines them with Gaussian fits and appends one value per span, plus one
for the whole profile, to the history buffers.  A tick that finds more runs
than the configured maximum is abandoned before fitting and leaves every
buffer and fit untouched.

A Tracker runs at most one tick at a time.  A tick requested while another is
in flight is dropped with ErrBusy.  Span edits and configuration changes wait
for the running tick to finish.

*/
package tracker

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nasa-jpl/peaktrack/camera"
	"github.com/nasa-jpl/peaktrack/gaussfit"
	"github.com/nasa-jpl/peaktrack/history"
	"github.com/nasa-jpl/peaktrack/lissajous"
	"github.com/nasa-jpl/peaktrack/peaks"
	"github.com/nasa-jpl/peaktrack/profile"
	"github.com/nasa-jpl/peaktrack/span"
)

var (
	// ErrBusy is generated when RunOnce is called while a tick is running
	ErrBusy = errors.New("tracker busy, tick dropped")

	// ErrPeakCountExceeded is generated when a profile holds more threshold
	// runs than Config.MaxPeaks.  The tick is abandoned
	ErrPeakCountExceeded = errors.New("peak count exceeds maximum")

	// ErrInvalidConfig is generated for malformed configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Separator is placed before each value of an amplitude log line
const Separator = " "

// SpanFit is the fit of one span
type SpanFit struct {
	ID   span.ID    `json:"id"`
	Name string     `json:"name"`
	Peak peaks.Peak `json:"peak"`

	// Valid is false until the span has had one successful fit
	Valid bool `json:"valid"`
}

// Result is the outcome of the most recent completed tick
type Result struct {
	// Tick counts completed ticks, starting from 1
	Tick uint64 `json:"tick"`

	// Mode is the fit mode the tick ran in
	Mode string `json:"mode"`

	// Coarse holds the threshold runs of the tick as peaks
	Coarse []peaks.Peak `json:"coarse"`

	// Peaks holds the joint fit, or the last good one if the tick's fit failed
	Peaks []peaks.Peak `json:"peaks"`

	// SpanFits holds the per-span fits in span order
	SpanFits []SpanFit `json:"spanFits"`

	// PerSpan maps span names to the value appended to their history
	PerSpan map[string]float64 `json:"perSpan"`

	// Aggregate is the value appended to the whole-profile history
	Aggregate float64 `json:"aggregate"`

	// PerSpanHistory holds the history of every span as of the end of the
	// tick, oldest first
	PerSpanHistory map[span.ID][]float64 `json:"perSpanHistory"`

	// AggregateHistory is the whole-profile history, oldest first
	AggregateHistory []float64 `json:"aggregateHistory"`

	// FitErr is non-nil if any fit of the tick failed
	FitErr error `json:"-"`

	// FitError is FitErr as a string, for JSON
	FitError string `json:"fitError,omitempty"`
}

// Clone returns a deep copy of r
func (r Result) Clone() Result {
	out := r
	out.Coarse = append([]peaks.Peak(nil), r.Coarse...)
	out.Peaks = append([]peaks.Peak(nil), r.Peaks...)
	out.SpanFits = append([]SpanFit(nil), r.SpanFits...)
	out.PerSpan = make(map[string]float64, len(r.PerSpan))
	for k, v := range r.PerSpan {
		out.PerSpan[k] = v
	}
	out.PerSpanHistory = make(map[span.ID][]float64, len(r.PerSpanHistory))
	for k, v := range r.PerSpanHistory {
		out.PerSpanHistory[k] = append([]float64(nil), v...)
	}
	out.AggregateHistory = append([]float64(nil), r.AggregateHistory...)
	return out
}

// Amplitudes returns the fitted amplitudes in the active mode: joint peaks, or
// span fits in span order
func (r Result) Amplitudes() []float64 {
	return peaks.Amplitudes(r.fitted())
}

func (r Result) fitted() []peaks.Peak {
	if r.Mode == PerSpan.String() {
		out := make([]peaks.Peak, len(r.SpanFits))
		for i, sf := range r.SpanFits {
			out[i] = sf.Peak
		}
		return out
	}
	return r.Peaks
}

// Tracker is the pipeline orchestrator.  It is concurrent safe
type Tracker struct {
	busy atomic.Bool
	mu   sync.Mutex

	cfg       Config
	reduce    history.Reducer
	log       *zap.Logger
	spans     *span.Registry
	aggregate *history.Buffer

	tick    uint64
	frame   camera.Frame
	prof    profile.Profile
	joint   []peaks.Peak
	perSpan map[span.ID]peaks.Peak
	last    atomic.Pointer[Result]
}

// New returns a tracker with no spans.  A nil logger discards logs
func New(cfg Config, logger *zap.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	reduce, _ := history.ParseReducer(cfg.Reducer)
	reg, err := span.NewRegistry(cfg.DomainLo, cfg.DomainHi, cfg.Capacity())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	agg, err := history.New(cfg.Capacity())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	t := &Tracker{
		cfg:       cfg,
		reduce:    reduce,
		log:       logger,
		spans:     reg,
		aggregate: agg,
		perSpan:   map[span.ID]peaks.Peak{},
	}
	t.last.Store(&Result{
		Mode:           cfg.Mode.String(),
		PerSpan:        map[string]float64{},
		PerSpanHistory: map[span.ID][]float64{},
	})
	return t, nil
}

// Config returns the active configuration
func (t *Tracker) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Capacity returns the length of the history buffers
func (t *Tracker) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Capacity()
}

// Configure replaces the configuration.  Buffers are resized, evicting the
// oldest values if they shrink.  Switching to joint mode removes every span;
// switching to per-span mode with no spans lays out MaxPeaks of them.  A
// change of domain removes every span.  On error nothing changes
func (t *Tracker) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	reduce, _ := history.ParseReducer(cfg.Reducer)
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.cfg
	if cfg.DomainLo != prev.DomainLo || cfg.DomainHi != prev.DomainHi {
		reg, err := span.NewRegistry(cfg.DomainLo, cfg.DomainHi, cfg.Capacity())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		t.spans = reg
		t.perSpan = map[span.ID]peaks.Peak{}
	} else if err := t.spans.SetCapacity(cfg.Capacity()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := t.aggregate.SetCapacity(cfg.Capacity()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	t.cfg = cfg
	t.reduce = reduce

	if cfg.Mode != prev.Mode {
		switch cfg.Mode {
		case Joint:
			t.spans.Clear()
			t.perSpan = map[span.ID]peaks.Peak{}
		case PerSpan:
			t.joint = nil
			if t.spans.Len() == 0 {
				if _, err := t.spans.AddEvenlySpaced(cfg.MaxPeaks, span.DefaultWidth, span.DefaultPitch); err != nil {
					t.log.Warn("laying out spans", zap.Error(err))
				}
			}
		}
	}
	t.log.Info("configured",
		zap.Stringer("mode", cfg.Mode),
		zap.Float64("threshold", cfg.Threshold),
		zap.Int("maxPeaks", cfg.MaxPeaks),
		zap.Int("capacity", cfg.Capacity()))
	return nil
}

// update applies fcn to a copy of the configuration and configures with it
func (t *Tracker) update(fcn func(*Config)) error {
	cfg := t.Config()
	fcn(&cfg)
	return t.Configure(cfg)
}

// SetThreshold changes the threshold
func (t *Tracker) SetThreshold(v float64) error {
	return t.update(func(c *Config) { c.Threshold = v })
}

// SetMaxPeaks changes the peak count guard
func (t *Tracker) SetMaxPeaks(n int) error {
	return t.update(func(c *Config) { c.MaxPeaks = n })
}

// SetMode changes the fit mode
func (t *Tracker) SetMode(m FitMode) error {
	return t.update(func(c *Config) { c.Mode = m })
}

// RunOnce runs one tick on frame and returns its result.
//
// If a tick is already running, the previous result is returned with ErrBusy.
// If the profile is empty or holds more than MaxPeaks runs, the tick is
// abandoned: the previous result is returned with the error and no history
// is appended.  Failed fits do not abandon the tick; the last good parameters
// are kept and the failure is reported in Result.FitErr
func (t *Tracker) RunOnce(frame camera.Frame) (Result, error) {
	if !t.busy.CompareAndSwap(false, true) {
		return t.Result(), ErrBusy
	}
	defer t.busy.Store(false)
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.last.Load().Clone()
	cfg := t.cfg
	p, err := profile.Extract(frame, cfg.ProfileOptions())
	if err != nil {
		t.log.Debug("tick abandoned", zap.Error(err))
		return prev, fmt.Errorf("extract profile: %w", err)
	}
	t.prof = p
	t.frame = frame.Clone()

	runs := peaks.Runs(p, cfg.Threshold)
	if len(runs) > cfg.MaxPeaks {
		t.log.Debug("tick abandoned", zap.Int("peaks", len(runs)), zap.Int("max", cfg.MaxPeaks))
		return prev, fmt.Errorf("%d peaks above %g, max %d: %w", len(runs), cfg.Threshold, cfg.MaxPeaks, ErrPeakCountExceeded)
	}
	coarse := make([]peaks.Peak, len(runs))
	for i, r := range runs {
		coarse[i] = peaks.FromRun(p, r)
	}

	x := make([]float64, len(p))
	for i := range x {
		x[i] = float64(i)
	}
	var fitErr error
	switch cfg.Mode {
	case Joint:
		fitted, err := gaussfit.FitJoint(x, p, coarse, cfg.Fit)
		if err != nil {
			t.log.Warn("joint fit failed, keeping previous parameters", zap.Int("peaks", len(coarse)), zap.Error(err))
			fitErr = err
		} else {
			t.joint = fitted
		}
	case PerSpan:
		var errs []error
		for _, s := range t.spans.Spans() {
			pk, err := gaussfit.FitWindow(x, p, s.Lo, s.Hi, cfg.Fit)
			if err != nil {
				t.log.Warn("span fit failed, keeping previous parameters", zap.String("span", s.Name), zap.Error(err))
				errs = append(errs, fmt.Errorf("span %q: %w", s.Name, err))
				continue
			}
			t.perSpan[s.ID] = pk
		}
		fitErr = errors.Join(errs...)
	}

	res := Result{
		Mode:           cfg.Mode.String(),
		Coarse:         coarse,
		Peaks:          append([]peaks.Peak(nil), t.joint...),
		PerSpan:        map[string]float64{},
		PerSpanHistory: map[span.ID][]float64{},
		FitErr:         fitErr,
	}
	if fitErr != nil {
		res.FitError = fitErr.Error()
	}
	for _, s := range t.spans.Spans() {
		h, err := t.spans.History(s.ID)
		if err != nil {
			t.log.DPanic("span without history", zap.String("span", s.Name), zap.Error(err))
			continue
		}
		i0, i1 := gaussfit.Window(len(p), s.Lo, s.Hi)
		v := t.reduce(p[i0:max(i0, i1)])
		h.Append(v)
		t.check(h, s.Name)
		res.PerSpan[s.Name] = v
		res.PerSpanHistory[s.ID] = h.Values()
		pk, ok := t.perSpan[s.ID]
		res.SpanFits = append(res.SpanFits, SpanFit{ID: s.ID, Name: s.Name, Peak: pk, Valid: ok})
	}
	res.Aggregate = t.reduce(p)
	t.aggregate.Append(res.Aggregate)
	t.check(t.aggregate, "aggregate")
	res.AggregateHistory = t.aggregate.Values()

	t.tick++
	res.Tick = t.tick
	t.last.Store(&res)
	return res.Clone(), nil
}

func (t *Tracker) check(h *history.Buffer, name string) {
	if err := h.Check(); err != nil {
		t.log.DPanic("history invariant violated", zap.String("buffer", name), zap.Error(err))
	}
}

// Result returns a copy of the most recent result
func (t *Tracker) Result() Result {
	return t.last.Load().Clone()
}

// Profile returns a copy of the most recent profile
func (t *Tracker) Profile() profile.Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prof.Clone()
}

// Frame returns the frame of the most recent tick that produced a profile.
// ok is false before the first such tick
func (t *Tracker) Frame() (f camera.Frame, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.frame.Valid() {
		return camera.Frame{}, false
	}
	return t.frame.Clone(), true
}

// RelativeHeights returns the matrix of amplitude ratios of the current fit,
// see peaks.RelativeHeights
func (t *Tracker) RelativeHeights() [][]float64 {
	return peaks.RelativeHeights(t.Result().fitted())
}

// AddSpan adds a movable span
func (t *Tracker) AddSpan(name string, lo, hi float64) (span.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans.Add(name, lo, hi, true)
}

// RemoveSpan removes a span along with its history and fit
func (t *Tracker) RemoveSpan(id span.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.spans.Remove(id); err != nil {
		return err
	}
	delete(t.perSpan, id)
	return nil
}

// MoveSpan moves a span.  Its history and fit are kept
func (t *Tracker) MoveSpan(id span.ID, lo, hi float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans.Move(id, lo, hi)
}

// Spans returns the spans in insertion order
func (t *Tracker) Spans() []span.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans.Spans()
}

// InitPeakByPeak replaces every span with n evenly spaced ones.  If they do
// not all fit in the domain, nothing changes
func (t *Tracker) InitPeakByPeak(n int) ([]span.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids, err := t.spans.AddEvenlySpaced(n, span.DefaultWidth, span.DefaultPitch)
	if err != nil {
		return nil, err
	}
	t.perSpan = map[span.ID]peaks.Peak{}
	return ids, nil
}

// Series returns a copy of the history of a span
func (t *Tracker) Series(id span.ID) ([]float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, err := t.spans.History(id)
	if err != nil {
		return nil, err
	}
	return h.Values(), nil
}

// AggregateSeries returns a copy of the whole-profile history
func (t *Tracker) AggregateSeries() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aggregate.Values()
}

// Lissajous returns the histories of two spans aligned to their common length
func (t *Tracker) Lissajous(xID, yID span.ID) (x, y []float64, err error) {
	x, err = t.Series(xID)
	if err != nil {
		return nil, nil, err
	}
	y, err = t.Series(yID)
	if err != nil {
		return nil, nil, err
	}
	x, y = lissajous.Align(x, y)
	return x, y, nil
}

// Histories returns the span names and histories in span order, with the
// aggregate last if withAggregate is true
func (t *Tracker) Histories(withAggregate bool) (names []string, series [][]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.spans.Spans() {
		h, err := t.spans.History(s.ID)
		if err != nil {
			continue
		}
		names = append(names, s.Name)
		series = append(series, h.Values())
	}
	if withAggregate {
		names = append(names, "aggregate")
		series = append(series, t.aggregate.Values())
	}
	return names, series
}

// Export writes the histories with history.WriteText, one row per span in
// span order and the aggregate as the last row if withAggregate is true
func (t *Tracker) Export(w io.Writer, withAggregate bool) error {
	_, series := t.Histories(withAggregate)
	return history.WriteText(w, series)
}

// AppendAmplitudes writes one amplitude log line for the current fit
func (t *Tracker) AppendAmplitudes(w io.Writer) error {
	return history.AppendAmplitudes(w, Separator, t.Result().Amplitudes())
}
