/*Package acquire drives a tracker from a camera.

A Loop grabs a frame and runs one tick per period of the frame rate.  Frame
grabs that fail are retried with an exponential backoff; ticks that are
abandoned (too many peaks, no signal) are logged and the loop carries on.
Ticks never overlap since the loop is a single goroutine.

*/
package acquire

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/peaktrack/camera"
	"github.com/nasa-jpl/peaktrack/profile"
	"github.com/nasa-jpl/peaktrack/tracker"
)

// ErrRunning is generated when Start is called on a loop that is already running
var ErrRunning = errors.New("acquisition loop already running")

// Runner is the part of a tracker the loop needs
type Runner interface {
	RunOnce(camera.Frame) (tracker.Result, error)
}

// Stats counts what the loop has done
type Stats struct {
	Ticks       uint64 `json:"ticks"`
	Abandoned   uint64 `json:"abandoned"`
	GrabErrors  uint64 `json:"grabErrors"`
	TickErrors  uint64 `json:"tickErrors"`
	FitFailures uint64 `json:"fitFailures"`
}

// Loop paces frame grabs and ticks
type Loop struct {
	// Source provides frames
	Source camera.Source

	// Runner consumes them
	Runner Runner

	// Rate is the tick rate in Hz
	Rate float64

	// GrabTimeout bounds the time spent retrying one frame grab.  Zero means 3s
	GrabTimeout time.Duration

	// Logger receives the loop's logs.  nil discards them
	Logger *zap.Logger

	ticks, abandoned, grabErrors, tickErrors, fitFailures atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *Loop) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Stats returns a snapshot of the loop's counters
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:       l.ticks.Load(),
		Abandoned:   l.abandoned.Load(),
		GrabErrors:  l.grabErrors.Load(),
		TickErrors:  l.tickErrors.Load(),
		FitFailures: l.fitFailures.Load(),
	}
}

// grab gets a frame, retrying with an exponential backoff
func (l *Loop) grab(ctx context.Context) (camera.Frame, error) {
	timeout := l.GrabTimeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	var f camera.Frame
	op := func() error {
		var err error
		f, err = l.Source.GetFrame()
		if err != nil {
			l.logger().Debug("frame grab failed, retrying", zap.Error(err))
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      timeout,
		Clock:               backoff.SystemClock}, ctx))
	return f, err
}

// Step grabs one frame and runs one tick on it
func (l *Loop) Step(ctx context.Context) error {
	log := l.logger()
	f, err := l.grab(ctx)
	if err != nil {
		l.grabErrors.Add(1)
		log.Warn("frame grab failed", zap.Error(err))
		return err
	}
	res, err := l.Runner.RunOnce(f)
	switch {
	case err == nil:
		l.ticks.Add(1)
		if res.FitErr != nil {
			l.fitFailures.Add(1)
		}
	case errors.Is(err, tracker.ErrPeakCountExceeded),
		errors.Is(err, profile.ErrEmptyProfile),
		errors.Is(err, tracker.ErrBusy):
		l.abandoned.Add(1)
		log.Debug("tick abandoned", zap.Error(err))
	default:
		l.tickErrors.Add(1)
		log.Warn("tick failed", zap.Error(err))
	}
	return err
}

// Run ticks at Rate until ctx is done.  Errors from individual ticks are
// logged and counted, not returned
func (l *Loop) Run(ctx context.Context) error {
	if !(l.Rate > 0) {
		return camera.ErrBadFrameRate
	}
	lim := rate.NewLimiter(rate.Limit(l.Rate), 1)
	l.logger().Info("acquisition started", zap.Float64("rate", l.Rate))
	for {
		if err := lim.Wait(ctx); err != nil {
			// Wait fails early when the next token is past the deadline
			<-ctx.Done()
			l.logger().Info("acquisition stopped", zap.Uint64("ticks", l.ticks.Load()))
			return ctx.Err()
		}
		_ = l.Step(ctx)
	}
}

// Start runs the loop in a goroutine.  It may be restarted after Stop
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		l.Run(ctx)
	}(l.done)
	return nil
}

// Stop halts the loop and waits for the tick in flight to finish
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running is true between Start and Stop
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}
