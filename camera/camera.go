/*Package camera describes the interfaces the tracker needs from a camera, and
provides two cameras that need no hardware.

Source contains the one method the tracking pipeline uses, while Controller
contains the knobs typically found on a machine vision camera.  Replay plays back
a directory of image files as if they were coming off a sensor, and Synthetic
renders Gaussian stripes for demos and tests.

*/
package camera

import (
	"errors"
	"time"
)

var (
	// ErrNotInitialized is generated when GetFrame is called before Initialize
	ErrNotInitialized = errors.New("camera not initialized")

	// ErrNoFrames is generated when a replay directory holds no readable images
	ErrNoFrames = errors.New("no image files found")

	// ErrUnsupportedFormat is generated for files with an extension no decoder handles
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrBadFrameRate is generated when a non-positive frame rate is requested
	ErrBadFrameRate = errors.New("frame rate must be positive")
)

// Source describes the minimal contract of a camera: a fresh frame on demand.
type Source interface {
	// GetFrame acquires a frame.  The returned frame is owned by the caller
	GetFrame() (Frame, error)
}

// Controller describes an interface to a camera with the usual acquisition knobs.
type Controller interface {
	Source

	// Initialize initializes the camera.  This may have myriad side effects,
	// for example the allocation of buffer(s) for holding camera frames
	// or indexing a directory of files to replay.
	Initialize() error

	// Finalize releases whatever Initialize acquired
	Finalize() error

	// SetExposureTime sets the exposure time
	SetExposureTime(time.Duration) error

	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)

	// SetFrameRate sets the frame rate in Hz
	SetFrameRate(float64) error

	// GetFrameRate gets the frame rate in Hz
	GetFrameRate() (float64, error)
}
