// Package imgrec contains a recorder used to automatically save snapshots and logs to disk.
package imgrec

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nasa-jpl/peaktrack/generichttp"
)

// DefaultExt is the file extension used when Recorder.Ext is empty
const DefaultExt = ".fits"

// Recorder hands out incrementing filenames in yyyy-mm-dd subfolders.  It is
// concurrent safe.
type Recorder struct {
	mu sync.Mutex

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Ext is the extension of the files, including the dot
	Ext string

	// Enabled is a flag unused by this struct that allows consumers to disable its use in their code
	Enabled bool

	// now is replaced in tests
	now func() time.Time
}

// folder returns the dated subfolder for the current time
func (r *Recorder) folder() string {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	t := now()
	return filepath.Join(r.Root, fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day()))
}

func (r *Recorder) ext() string {
	if r.Ext == "" {
		return DefaultExt
	}
	return r.Ext
}

// Next makes today's folder if needed and returns the path of the next unused
// file, one past the highest number already on disk for this prefix and extension
func (r *Recorder) Next() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr := r.folder()
	if err := os.MkdirAll(fldr, 0777); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(fldr)
	if err != nil {
		return "", err
	}
	ext := r.ext()
	count := -1
	for _, e := range entries {
		// skip directories, other extensions, and wrong prefix
		fn := e.Name()
		if e.IsDir() || !strings.HasSuffix(fn, ext) || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ext))
		if err != nil {
			continue
		}
		if n > count {
			count = n
		}
	}
	return filepath.Join(fldr, fmt.Sprintf("%s%06d%s", r.Prefix, count+1, ext)), nil
}

// Create opens the file Next names for writing
func (r *Recorder) Create() (*os.File, error) {
	fn, err := r.Next()
	if err != nil {
		return nil, err
	}
	return os.Create(fn)
}

// HTTPWrapper is an HTTP wrapper around a recorder that allows the folder and prefix to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

func (h HTTPWrapper) setRoot(root string) error {
	if err := os.MkdirAll(root, 0777); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Root = root
	return nil
}

func (h HTTPWrapper) root() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Root, nil
}

func (h HTTPWrapper) setPrefix(p string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Prefix = p
	return nil
}

func (h HTTPWrapper) prefix() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Prefix, nil
}

func (h HTTPWrapper) setEnabled(b bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Enabled = b
	return nil
}

func (h HTTPWrapper) enabled() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Enabled, nil
}

// Inject adds GET and POST routes for /autowrite/root, /autowrite/prefix and /autowrite/enabled
// to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = generichttp.SetString(h.setRoot)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = generichttp.GetString(h.root)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = generichttp.SetString(h.setPrefix)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = generichttp.GetString(h.prefix)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = generichttp.SetBool(h.setEnabled)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = generichttp.GetBool(h.enabled)
}
