package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"

	"github.com/nasa-jpl/peaktrack/camera"
	"github.com/nasa-jpl/peaktrack/generichttp"
	"github.com/nasa-jpl/peaktrack/history"
	"github.com/nasa-jpl/peaktrack/imgrec"
	"github.com/nasa-jpl/peaktrack/lissajous"
	"github.com/nasa-jpl/peaktrack/mathx"
	"github.com/nasa-jpl/peaktrack/span"
)

// HTTPWrapper exposes a Tracker over HTTP
type HTTPWrapper struct {
	*Tracker

	// Snapshots names the frame files written by /record
	Snapshots *imgrec.Recorder

	// LogFile is the amplitude log /record appends to.  Empty disables the log
	LogFile string

	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns an HTTP wrapper around t.  rec may be nil, in which
// case /record and the /autowrite routes are not served
func NewHTTPWrapper(t *Tracker, rec *imgrec.Recorder, logFile string) HTTPWrapper {
	w := HTTPWrapper{Tracker: t, Snapshots: rec, LogFile: logFile}
	rt := generichttp.RouteTable{}
	get := func(path string, h http.HandlerFunc) { rt[generichttp.MethodPath{Method: http.MethodGet, Path: path}] = h }
	post := func(path string, h http.HandlerFunc) { rt[generichttp.MethodPath{Method: http.MethodPost, Path: path}] = h }

	get("/result", w.getResult)
	get("/profile", w.getProfile)
	get("/config", w.getConfig)
	post("/config", w.setConfig)
	get("/threshold", generichttp.GetFloat(func() (float64, error) { return t.Config().Threshold, nil }))
	post("/threshold", generichttp.SetFloat(t.SetThreshold))
	get("/max-peaks", generichttp.GetInt(func() (int, error) { return t.Config().MaxPeaks, nil }))
	post("/max-peaks", generichttp.SetInt(t.SetMaxPeaks))
	get("/mode", generichttp.GetString(func() (string, error) { return t.Config().Mode.String(), nil }))
	post("/mode", generichttp.SetString(w.setMode))
	get("/capacity", generichttp.GetInt(func() (int, error) { return t.Capacity(), nil }))

	get("/spans", w.getSpans)
	post("/spans", w.addSpan)
	rt[generichttp.MethodPath{Method: http.MethodDelete, Path: "/spans/{id}"}] = w.removeSpan
	post("/spans/{id}/region", w.moveSpan)
	get("/spans/{id}/history", w.series)
	post("/spans/peak-by-peak", generichttp.SetInt(func(n int) error {
		_, err := t.InitPeakByPeak(n)
		return err
	}))

	get("/aggregate", w.getAggregate)
	get("/relative-heights", w.relativeHeights)
	get("/history.txt", w.historyText)
	get("/history.png", w.historyPNG)
	get("/lissajous", w.getLissajous)
	get("/lissajous.png", w.lissajousPNG)
	w.RouteTable = rt
	if rec != nil {
		post("/record", w.record)
		imgrec.NewHTTPWrapper(rec).Inject(w)
	}
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// statusFor maps errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, span.ErrUnknownSpan):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, span.ErrInvalidSpanInterval),
		errors.Is(err, span.ErrDuplicateName),
		errors.Is(err, span.ErrImmovable):
		return http.StatusBadRequest
	case errors.Is(err, lissajous.ErrNoData):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

// finite replaces non-finite values with nil, which JSON encodes as null
func finite(v float64) interface{} {
	if mathx.Finite(v) {
		return v
	}
	return nil
}

func (h HTTPWrapper) getResult(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.Result())
}

func (h HTTPWrapper) getProfile(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, struct {
		Profile []float64 `json:"profile"`
	}{h.Profile()})
}

func (h HTTPWrapper) getConfig(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.Config())
}

// setConfig overlays the request body on the active configuration, so that
// partial documents only change the fields they name
func (h HTTPWrapper) setConfig(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	cfg := h.Config()
	err := json.NewDecoder(r.Body).Decode(&cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err = h.Configure(cfg); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) setMode(s string) error {
	m, err := ParseFitMode(s)
	if err != nil {
		return err
	}
	return h.SetMode(m)
}

func (h HTTPWrapper) getSpans(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.Spans())
}

type interval struct {
	Name string  `json:"name"`
	Lo   float64 `json:"lo"`
	Hi   float64 `json:"hi"`
}

func (h HTTPWrapper) addSpan(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	iv := interval{}
	if err := json.NewDecoder(r.Body).Decode(&iv); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := h.AddSpan(iv.Name, iv.Lo, iv.Hi)
	if err != nil {
		fail(w, err)
		return
	}
	s, err := h.spanByID(id)
	if err != nil {
		fail(w, err)
		return
	}
	generichttp.RespondJSON(w, s)
}

func (h HTTPWrapper) spanByID(id span.ID) (span.Span, error) {
	for _, s := range h.Spans() {
		if s.ID == id {
			return s, nil
		}
	}
	return span.Span{}, fmt.Errorf("%d: %w", id, span.ErrUnknownSpan)
}

func urlID(r *http.Request, key string) (span.ID, error) {
	id, err := span.ParseID(chi.URLParam(r, key))
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, span.ErrUnknownSpan)
	}
	return id, nil
}

func queryID(r *http.Request, key string) (span.ID, error) {
	id, err := span.ParseID(r.URL.Query().Get(key))
	if err != nil {
		return 0, fmt.Errorf("query %s: %v: %w", key, err, span.ErrUnknownSpan)
	}
	return id, nil
}

func (h HTTPWrapper) removeSpan(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err == nil {
		err = h.RemoveSpan(id)
	}
	if err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) moveSpan(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, err := urlID(r, "id")
	if err != nil {
		fail(w, err)
		return
	}
	iv := interval{}
	if err = json.NewDecoder(r.Body).Decode(&iv); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err = h.MoveSpan(id, iv.Lo, iv.Hi); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h HTTPWrapper) series(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	var s []float64
	if err == nil {
		s, err = h.Series(id)
	}
	if err != nil {
		fail(w, err)
		return
	}
	generichttp.RespondJSON(w, s)
}

func (h HTTPWrapper) getAggregate(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.AggregateSeries())
}

// relativeHeights responds with the ratio matrix rounded to 3 decimals, with
// null where the ratio is undefined
func (h HTTPWrapper) relativeHeights(w http.ResponseWriter, r *http.Request) {
	m := h.RelativeHeights()
	out := make([][]interface{}, len(m))
	for i, row := range m {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = finite(mathx.Round(v, 0.001))
		}
	}
	generichttp.RespondJSON(w, out)
}

func wantAggregate(r *http.Request) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get("aggregate"))
	return err == nil && b
}

func (h HTTPWrapper) historyText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	err := h.Export(w, wantAggregate(r))
	if err != nil {
		fail(w, err)
	}
}

func (h HTTPWrapper) historyPNG(w http.ResponseWriter, r *http.Request) {
	names, series := h.Histories(wantAggregate(r))
	w.Header().Set("Content-Type", "image/png")
	err := lissajous.RenderHistory(w, series, names, lissajous.Options{Title: "History", YLabel: h.Config().Reducer})
	if err != nil {
		fail(w, err)
	}
}

func (h HTTPWrapper) pair(r *http.Request) (x, y []float64, err error) {
	xID, err := queryID(r, "x")
	if err != nil {
		return nil, nil, err
	}
	yID, err := queryID(r, "y")
	if err != nil {
		return nil, nil, err
	}
	return h.Lissajous(xID, yID)
}

func (h HTTPWrapper) getLissajous(w http.ResponseWriter, r *http.Request) {
	x, y, err := h.pair(r)
	if err != nil {
		fail(w, err)
		return
	}
	s := lissajous.Summarize(x, y)
	generichttp.RespondJSON(w, map[string]interface{}{
		"n":           s.N,
		"correlation": finite(s.Correlation),
		"phase":       finite(s.Phase),
		"bin":         s.Bin,
	})
}

func (h HTTPWrapper) lissajousPNG(w http.ResponseWriter, r *http.Request) {
	x, y, err := h.pair(r)
	if err != nil {
		fail(w, err)
		return
	}
	q := r.URL.Query()
	w.Header().Set("Content-Type", "image/png")
	err = lissajous.RenderPNG(w, x, y, lissajous.Options{XLabel: "span " + q.Get("x"), YLabel: "span " + q.Get("y")})
	if err != nil {
		fail(w, err)
	}
}

// record saves the last frame through the snapshot recorder and appends the
// current amplitudes to the log file
func (h HTTPWrapper) record(w http.ResponseWriter, r *http.Request) {
	f, ok := h.Frame()
	if !ok {
		http.Error(w, "no frame has been processed yet", http.StatusConflict)
		return
	}
	fid, err := h.Snapshots.Create()
	if err != nil {
		fail(w, err)
		return
	}
	fn := fid.Name()
	res := h.Result()
	cards := []fitsio.Card{
		{Name: "DATE", Value: time.Now().UTC().Format("2006-01-02T15:04:05")},
		{Name: "TICK", Value: int(res.Tick)},
		{Name: "FITMODE", Value: res.Mode},
	}
	err = camera.Encode(fid, filepath.Ext(fn), f, cards)
	if cerr := fid.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fail(w, err)
		return
	}
	if h.LogFile != "" {
		log, err := os.OpenFile(h.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			fail(w, err)
			return
		}
		err = history.AppendAmplitudes(log, Separator, res.Amplitudes())
		if cerr := log.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fail(w, err)
			return
		}
	}
	generichttp.RespondJSON(w, generichttp.StrT{Str: fn})
}
