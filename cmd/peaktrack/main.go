/*Command peaktrack tracks the Gaussian peaks in the profile of a camera frame.

It serves the tracker over HTTP while an acquisition loop feeds it frames, or
replays a folder of frames offline.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"
	"go.uber.org/zap"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/peaktrack/acquire"
	"github.com/nasa-jpl/peaktrack/camera"
	"github.com/nasa-jpl/peaktrack/generichttp"
	"github.com/nasa-jpl/peaktrack/profile"
	"github.com/nasa-jpl/peaktrack/tracker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "peaktrack.yml"

	// EnvPrefix marks environment variables that override the config file,
	// e.g. PEAKTRACK_TRACKER_THRESHOLD=0.3
	EnvPrefix = "PEAKTRACK_"

	k = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	// environment variables are upper case, map them back onto known keys
	known := map[string]string{}
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "_", "."))
		if name, ok := known[key]; ok {
			return name
		}
		return key
	}), nil)
	if err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

func loadconfig() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	return c
}

func root() {
	str := `peaktrack tracks the peaks in the profile of camera frames
and serves the fits, span histories and Lissajous figures over HTTP.

Usage:
	peaktrack <command>

Commands:
	run
	replay <dir> [output]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `peaktrack is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.
Any key may be overridden by an environment variable prefixed with PEAKTRACK_,
with underscores separating the levels, e.g. PEAKTRACK_TRACKER_MODE=per-span.

Camera.Type is synthetic or replay.  A synthetic camera draws Camera.Stripes,
each modulated so that neighboring stripes trace a circle against each other.
A replay camera cycles through the FITS, TIFF, PNG, JPEG and BMP files in Camera.Dir.

Tracker.Mode is joint, which fits every peak above Tracker.Threshold together,
or per-span, which fits one peak in each span.  Spans may be listed under
Tracker.Spans; a per-span tracker without any gets Tracker.MaxPeaks evenly
spaced spans.  A frame with more than Tracker.MaxPeaks peaks is skipped.

replay runs every frame in a folder through the tracker once, prints the
last fit and writes the span histories to output, peaktrack_history.txt by default.

GET /endpoints lists every route the server offers.`
	fmt.Println(str)
}

func mkconf() {
	c := loadconfig()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := loadconfig()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("peaktrack version %v\n", Version)
}

func mustLogger(c Config) *zap.Logger {
	logger, err := NewLogger(c)
	if err != nil {
		log.Fatalf("error building logger: %v", err)
	}
	return logger
}

func run() {
	cfg := loadconfig()
	logger := mustLogger(cfg)
	defer logger.Sync()

	cam, err := NewCamera(cfg)
	if err != nil {
		logger.Fatal("initializing camera", zap.Error(err))
	}
	defer cam.Finalize()

	t, err := NewTracker(cfg, logger.Named("tracker"))
	if err != nil {
		logger.Fatal("building tracker", zap.Error(err))
	}

	loop := &acquire.Loop{
		Source:      cam,
		Runner:      t,
		Rate:        cfg.FrameRate,
		GrabTimeout: grabTimeout(cfg.FrameRate),
		Logger:      logger.Named("acquire"),
	}
	if cfg.Autostart {
		if err := loop.Start(); err != nil {
			logger.Fatal("starting acquisition", zap.Error(err))
		}
	}
	defer loop.Stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: BuildMux(cfg, t, loop)}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	logger.Info("now listening for requests",
		zap.String("addr", cfg.Addr+generichttp.SubMuxSanitize(cfg.Endpoint)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serving", zap.Error(err))
	}
}

// tally counts the outcomes of a replay
type tally struct {
	ticks, abandoned, empty, fitFailures int
}

func replay(dir, out string) {
	cfg := loadconfig()
	logger := mustLogger(cfg)
	defer logger.Sync()

	cam := camera.NewReplay(dir)
	if err := cam.Initialize(); err != nil {
		logger.Fatal("opening replay folder", zap.String("dir", dir), zap.Error(err))
	}
	defer cam.Finalize()
	n := cam.Len()

	// keep every frame of the replay in the histories
	if cfg.FrameRate > 0 {
		cfg.Tracker.SampleWindow = max(cfg.Tracker.SampleWindow, float64(n)/cfg.FrameRate)
	}
	t, err := NewTracker(cfg, logger.Named("tracker"))
	if err != nil {
		logger.Fatal("building tracker", zap.Error(err))
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " replaying",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		logger.Fatal("building spinner", zap.Error(err))
	}
	spinner.Start()

	var tl tally
	for i := 0; i < n; i++ {
		spinner.Message(fmt.Sprintf("frame %d/%d", i+1, n))
		f, err := cam.GetFrame()
		if err != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
			logger.Fatal("reading frame", zap.Int("frame", i), zap.Error(err))
		}
		res, err := t.RunOnce(f)
		switch {
		case errors.Is(err, profile.ErrEmptyProfile):
			tl.empty++
			continue
		case errors.Is(err, tracker.ErrPeakCountExceeded):
			tl.abandoned++
			continue
		case err != nil:
			logger.Warn("tick failed", zap.Int("frame", i), zap.Error(err))
			continue
		}
		tl.ticks++
		if res.FitErr != nil {
			tl.fitFailures++
		}
	}
	spinner.StopMessage(fmt.Sprintf("%d frames", n))
	spinner.Stop()

	res := t.Result()
	fmt.Printf("ticks %d, abandoned %d, empty %d, fit failures %d\n", tl.ticks, tl.abandoned, tl.empty, tl.fitFailures)
	fmt.Printf("mode %s\n", res.Mode)
	for i, p := range res.Peaks {
		fmt.Printf("peak %d: center %.3f amplitude %.3f b %.6f\n", i, p.Center, p.Amplitude, p.InvHalfWidth)
	}
	for _, sf := range res.SpanFits {
		fmt.Printf("span %s: valid %v center %.3f amplitude %.3f\n", sf.Name, sf.Valid, sf.Peak.Center, sf.Peak.Amplitude)
	}

	f, err := os.Create(out)
	if err != nil {
		logger.Fatal("creating history export", zap.Error(err))
	}
	defer f.Close()
	if err := t.Export(f, true); err != nil {
		logger.Fatal("writing history export", zap.Error(err))
	}
	fmt.Printf("histories written to %s\n", out)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "replay":
		if len(args) < 3 {
			log.Fatal("replay needs a folder of frames")
		}
		out := "peaktrack_history.txt"
		if len(args) > 3 {
			out = args[3]
		}
		replay(args[2], out)
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
