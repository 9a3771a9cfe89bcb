package camera

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	// decoders for the formats Replay understands
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var replayExtensions = map[string]bool{
	".fits": true, ".fit": true, ".fts": true,
	".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true, ".bmp": true,
}

// Replay is a simulated camera which plays back a directory of image files in
// lexical order, wrapping around at the end.  It is concurrent safe.
type Replay struct {
	sync.Mutex

	// Dir is the directory holding the frames
	Dir string

	files    []string
	cursor   int
	exposure time.Duration
	fps      float64
}

// NewReplay returns a replay camera bound to dir.  Initialize must be called before use.
func NewReplay(dir string) *Replay {
	return &Replay{Dir: dir, fps: 10}
}

// Initialize indexes the directory
func (r *Replay) Initialize() error {
	r.Lock()
	defer r.Unlock()
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return err
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if replayExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(r.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: %w", r.Dir, ErrNoFrames)
	}
	sort.Strings(files)
	r.files = files
	r.cursor = 0
	return nil
}

// Finalize forgets the directory index
func (r *Replay) Finalize() error {
	r.Lock()
	defer r.Unlock()
	r.files = nil
	r.cursor = 0
	return nil
}

// Len returns the number of frames in the replay
func (r *Replay) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.files)
}

// GetFrame loads the next file
func (r *Replay) GetFrame() (Frame, error) {
	r.Lock()
	if len(r.files) == 0 {
		r.Unlock()
		return Frame{}, ErrNotInitialized
	}
	fn := r.files[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.files)
	r.Unlock()
	return LoadFrame(fn)
}

// SetExposureTime stores the exposure time; it has no effect on playback
func (r *Replay) SetExposureTime(d time.Duration) error {
	r.Lock()
	defer r.Unlock()
	r.exposure = d
	return nil
}

// GetExposureTime returns the stored exposure time
func (r *Replay) GetExposureTime() (time.Duration, error) {
	r.Lock()
	defer r.Unlock()
	return r.exposure, nil
}

// SetFrameRate stores the nominal frame rate used to pace playback
func (r *Replay) SetFrameRate(fps float64) error {
	if fps <= 0 {
		return ErrBadFrameRate
	}
	r.Lock()
	defer r.Unlock()
	r.fps = fps
	return nil
}

// GetFrameRate returns the nominal frame rate
func (r *Replay) GetFrameRate() (float64, error) {
	r.Lock()
	defer r.Unlock()
	return r.fps, nil
}

// LoadFrame reads one image file from disk as a grayscale frame
func LoadFrame(fn string) (Frame, error) {
	ext := strings.ToLower(filepath.Ext(fn))
	if !replayExtensions[ext] {
		return Frame{}, fmt.Errorf("%s: %w", fn, ErrUnsupportedFormat)
	}
	f, err := os.Open(fn)
	if err != nil {
		return Frame{}, err
	}
	defer f.Close()
	switch ext {
	case ".fits", ".fit", ".fts":
		return ReadFits(f)
	default:
		img, _, err := image.Decode(f)
		if err != nil {
			return Frame{}, fmt.Errorf("%s: %w", fn, err)
		}
		return FromImage(img), nil
	}
}
