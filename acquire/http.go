package acquire

import (
	"net/http"

	"github.com/nasa-jpl/peaktrack/generichttp"
)

// HTTPWrapper exposes start/stop control of a Loop.
//
// like imgrec.HTTPWrapper it is injected into another HTTPer
type HTTPWrapper struct {
	*Loop
}

// NewHTTPWrapper returns an HTTP wrapper around a loop
func NewHTTPWrapper(l *Loop) HTTPWrapper {
	return HTTPWrapper{l}
}

func (h HTTPWrapper) setRunning(b bool) error {
	if !b {
		h.Stop()
		return nil
	}
	if err := h.Start(); err != nil && err != ErrRunning {
		return err
	}
	return nil
}

func (h HTTPWrapper) running() (bool, error) {
	return h.Running(), nil
}

func (h HTTPWrapper) stats(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.Stats())
}

// Inject adds GET and POST /acquire and GET /acquire/stats to the HTTPer
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/acquire"}] = generichttp.SetBool(h.setRunning)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquire"}] = generichttp.GetBool(h.running)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/acquire/stats"}] = h.stats
}
